// Package access is the single authorization point. Every query filter
// passes through here before any store access; callers never check role
// strings ad hoc.
package access

import (
	"time"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Identity is the authenticated caller extracted from the token.
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Role       model.Role
	Department string
	ClassName  string
}

// RequireRoles fails with Forbidden unless the caller holds one of the
// given roles.
func RequireRoles(id Identity, roles ...model.Role) error {
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("forbidden")
}

// Staff reports whether the caller may exercise marking/approval
// capabilities.
func Staff(id Identity) bool {
	return id.Role == model.RoleFaculty || id.Role == model.RoleIncharge || id.Role == model.RoleAdmin
}

// ScopeLedger narrows an attendance listing filter. A student's requested
// filters are overridden, not merged: they see their own records only.
// Faculty narrowing cannot be expressed as a store filter - it joins on the
// timetable - so it runs after the read, via NarrowToSlots.
func ScopeLedger(id Identity, f store.LedgerFilter) store.LedgerFilter {
	if id.Role == model.RoleStudent {
		f.StudentID = id.UserID
	}
	return f
}

// SlotKey identifies a timetable slot by weekday and period.
type SlotKey struct {
	Day    int
	Period int
}

// SlotKeysOf collects the slot set covered by the given timetable entries.
func SlotKeysOf(slots []model.SchedulePeriod) map[SlotKey]bool {
	keys := make(map[SlotKey]bool, len(slots))
	for _, p := range slots {
		keys[SlotKey{Day: p.DayOfWeek, Period: p.PeriodID}] = true
	}
	return keys
}

// NarrowToSlots keeps only ledger rows whose (weekday(date), period) pair
// falls inside the allowed slot set. This is the faculty read scope: rows
// joined to their assigned periods, nothing wider.
func NarrowToSlots(records []model.AttendanceRecord, allowed map[SlotKey]bool) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		t, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if allowed[SlotKey{Day: int(t.Weekday()), Period: rec.PeriodID}] {
			out = append(out, rec)
		}
	}
	return out
}

// ReportTarget resolves which student a report request may cover. Students
// are pinned to themselves regardless of the requested id; staff may target
// any student, defaulting to the requested id or (when empty) the caller.
func ReportTarget(id Identity, requested string) (string, error) {
	if id.Role == model.RoleStudent {
		return id.UserID, nil
	}
	if !Staff(id) {
		return "", apperr.Forbidden("forbidden")
	}
	if requested == "" {
		return id.UserID, nil
	}
	return requested, nil
}

// ScopeUsers narrows a user listing. Incharges see only students and are
// pinned to their own department; admins pass filters through.
func ScopeUsers(id Identity, f store.UserFilter) (store.UserFilter, error) {
	switch id.Role {
	case model.RoleAdmin:
		return f, nil
	case model.RoleIncharge:
		f.Role = model.RoleStudent
		if id.Department != "" {
			f.Department = id.Department
		}
		return f, nil
	default:
		return store.UserFilter{}, apperr.Forbidden("forbidden")
	}
}

// CanCreateRole enforces account-creation capability: incharges may create
// student accounts only; admins may create any role.
func CanCreateRole(creator Identity, role model.Role) error {
	switch creator.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleIncharge:
		if role != model.RoleStudent {
			return apperr.Forbidden("incharges can only create student accounts")
		}
		return nil
	default:
		return apperr.Forbidden("forbidden")
	}
}

// ScopeTimetable narrows a timetable listing: students only see slots for
// their own department/class.
func ScopeTimetable(id Identity, f store.ScheduleFilter) store.ScheduleFilter {
	if id.Role == model.RoleStudent {
		if id.Department != "" {
			f.Department = id.Department
		}
		if id.ClassName != "" {
			f.ClassName = id.ClassName
		}
	}
	return f
}

// ScopeLeaves narrows a leave-request listing. deptStudentIDs carries the
// incharge's department roster, resolved by the caller before any
// leave-store access.
func ScopeLeaves(id Identity, deptStudentIDs []string) store.LeaveFilter {
	switch id.Role {
	case model.RoleStudent:
		return store.LeaveFilter{StudentID: id.UserID}
	case model.RoleFaculty:
		return store.LeaveFilter{FacultyID: id.UserID}
	case model.RoleIncharge:
		if deptStudentIDs == nil {
			deptStudentIDs = []string{}
		}
		return store.LeaveFilter{StudentIDs: deptStudentIDs}
	default:
		return store.LeaveFilter{}
	}
}

// ScopeComplaints narrows a complaint listing, mirroring ScopeLeaves.
// Faculty have no complaint queue: they see nothing unless admin widens it.
func ScopeComplaints(id Identity, deptStudentIDs []string) store.ComplaintFilter {
	switch id.Role {
	case model.RoleStudent, model.RoleFaculty:
		return store.ComplaintFilter{StudentID: id.UserID}
	case model.RoleIncharge:
		if deptStudentIDs == nil {
			deptStudentIDs = []string{}
		}
		return store.ComplaintFilter{StudentIDs: deptStudentIDs}
	default:
		return store.ComplaintFilter{}
	}
}
