package model

import "time"

// Role is the account role. Mid-tier roles (faculty, incharge) are
// additionally scoped by department/class.
type Role string

const (
	RoleStudent  Role = "student"
	RoleFaculty  Role = "faculty"
	RoleIncharge Role = "incharge"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleIncharge, RoleAdmin:
		return true
	}
	return false
}

// User is an account record. UID is the hardware tag (RFID) identifier,
// unique when set.
type User struct {
	ID                 string    `json:"id" bson:"_id,omitempty"`
	Name               string    `json:"name" bson:"name"`
	Email              string    `json:"email" bson:"email"`
	PasswordHash       string    `json:"-" bson:"password_hash"`
	Role               Role      `json:"role" bson:"role"`
	UID                string    `json:"uid,omitempty" bson:"uid,omitempty"`
	IDNumber           string    `json:"id_number,omitempty" bson:"id_number,omitempty"`
	Department         string    `json:"department,omitempty" bson:"department,omitempty"`
	ClassName          string    `json:"class_name,omitempty" bson:"class_name,omitempty"`
	IsActive           bool      `json:"is_active" bson:"is_active"`
	MustChangePassword bool      `json:"must_change_password" bson:"must_change_password"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// SchedulePeriod is one weekly timetable slot. (DayOfWeek, PeriodID) is
// unique across the table.
type SchedulePeriod struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	DayOfWeek    int       `json:"day_of_week" bson:"day_of_week"` // 0=Sunday .. 6=Saturday
	PeriodID     int       `json:"period_id" bson:"period_id"`
	Subject      string    `json:"subject" bson:"subject"`
	StartTime    string    `json:"start_time" bson:"start_time"` // "HH:MM"
	EndTime      string    `json:"end_time" bson:"end_time"`     // "HH:MM"
	FacultyID    string    `json:"faculty_id,omitempty" bson:"faculty_id,omitempty"`
	FacultyName  string    `json:"faculty_name,omitempty" bson:"faculty_name,omitempty"`
	FacultyEmail string    `json:"faculty_email,omitempty" bson:"faculty_email,omitempty"`
	Department   string    `json:"department,omitempty" bson:"department,omitempty"`
	ClassName    string    `json:"class_name,omitempty" bson:"class_name,omitempty"`
	Location     string    `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Attendance statuses. The wire format keeps the original single-letter
// codes produced by the hardware scanners.
const (
	StatusPresent = "P"
	StatusAbsent  = "A"
)

// ValidStatus reports whether s is an allowed presence status.
func ValidStatus(s string) bool { return s == StatusPresent || s == StatusAbsent }

// Mark origins.
const (
	SourceWeb      = "web"
	SourceHardware = "hardware"
	SourceCSV      = "csv"
)

// AttendanceRecord is one presence mark. (StudentID, Date, PeriodID) is the
// uniqueness key; a later mark for the same key overwrites Status, MarkedAt
// and Source. PeriodID 0 means an unscoped daily mark.
type AttendanceRecord struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	StudentID string    `json:"student_id" bson:"student_id"`
	Date      string    `json:"date" bson:"date"` // "YYYY-MM-DD"
	PeriodID  int       `json:"period_id" bson:"period_id"`
	Status    string    `json:"status" bson:"status"`
	MarkedAt  time.Time `json:"marked_at" bson:"marked_at"`
	Source    string    `json:"source" bson:"source"`
}

// Leave request statuses. pending is the only non-terminal state.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// LeaveRequest is a student's permission request routed to a faculty
// approver. Once decided it cannot be reopened.
type LeaveRequest struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	StudentID string    `json:"student_id" bson:"student_id"`
	FacultyID string    `json:"faculty_id" bson:"faculty_id"`
	Reason    string    `json:"reason" bson:"reason"`
	StartDate string    `json:"start_date" bson:"start_date"`
	EndDate   string    `json:"end_date" bson:"end_date"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Complaint statuses. Transitions are free among all three.
const (
	ComplaintPending   = "pending"
	ComplaintResolved  = "resolved"
	ComplaintDismissed = "dismissed"
)

// Complaint is a free-form student grievance.
type Complaint struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	StudentID string    `json:"student_id" bson:"student_id"`
	Message   string    `json:"message" bson:"message"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ActivationCode is a one-shot code required for faculty signup.
type ActivationCode struct {
	Code   string `json:"code" bson:"_id"`
	IsUsed bool   `json:"is_used" bson:"is_used"`
}

// PercentStat is the unscoped attendance percentage over a date range.
type PercentStat struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Percent float64 `json:"percent"`
}

// SubjectStat is a per-subject slice of the breakdown report.
type SubjectStat struct {
	Subject string  `json:"subject"`
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Percent float64 `json:"percent"`
}

// FacultyStat aggregates one (subject, period) pair for a faculty member.
type FacultyStat struct {
	Subject        string `json:"subject"`
	PeriodID       int    `json:"period_id"`
	TotalClasses   int    `json:"total_classes"`
	TotalPresent   int    `json:"total_present"`
	TotalAbsent    int    `json:"total_absent"`
	UniqueStudents int    `json:"unique_students"`
}

// DayStat is today's mark tally used by the overall dashboard.
type DayStat struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// OverallStats is the staff dashboard summary.
type OverallStats struct {
	TotalStudents     int     `json:"totalStudents"`
	TodayAttendance   DayStat `json:"todayAttendance"`
	PendingLeaves     int     `json:"pendingPermissions"`
	PendingComplaints int     `json:"pendingComplaints"`
}

// DateOf formats t as the ledger's calendar date.
func DateOf(t time.Time) string { return t.Format("2006-01-02") }
