package auth

import (
	"regexp"
	"strings"

	"campustrack/internal/model"
)

// Student email prefixes follow the registration-number pattern issued to
// the current cohorts.
var studentEmailRe = regexp.MustCompile(`^(24pa|25pa)[a-z0-9]+$`)

var facultyLocalRe = regexp.MustCompile(`^[a-z]+(\.[a-z]+)*$`)

// DetectRole infers the account role from an institution email address.
// Returns "" when no rule matches.
func DetectRole(email string) model.Role {
	lower := strings.ToLower(strings.TrimSpace(email))
	local, _, found := strings.Cut(lower, "@")
	if !found {
		return ""
	}
	if strings.Contains(lower, "admin") {
		return model.RoleAdmin
	}
	if strings.Contains(lower, "incharge") {
		return model.RoleIncharge
	}
	if studentEmailRe.MatchString(local) {
		return model.RoleStudent
	}
	if facultyLocalRe.MatchString(local) {
		return model.RoleFaculty
	}
	return ""
}
