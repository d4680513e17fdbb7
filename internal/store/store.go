package store

import (
	"context"

	"campustrack/internal/model"
)

// Store is the storage abstraction the service core runs against. Backends:
// Postgres (schema-on-write), Mongo (schema-on-read), and an in-memory map
// store for dev mode and tests.
type Store interface {
	Users() UserStore
	Schedule() ScheduleStore
	Ledger() LedgerStore
	Leaves() LeaveStore
	Complaints() ComplaintStore
	Codes() CodeStore

	Ping(ctx context.Context) error
	Close() error
}

// UserFilter narrows user listings. Zero values mean "no filter".
type UserFilter struct {
	Role       model.Role
	Department string
	ClassName  string
	Search     string // matches name or email, case-insensitive substring
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUID(ctx context.Context, uid string) (*model.User, error)
	List(ctx context.Context, f UserFilter) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
	CountActiveStudents(ctx context.Context) (int, error)
	// StudentIDsByDepartment supports incharge scoping of leave requests
	// and complaints.
	StudentIDsByDepartment(ctx context.Context, department string) ([]string, error)
}

// ScheduleFilter narrows timetable listings. Day -1 means any day.
type ScheduleFilter struct {
	Day          int
	Department   string
	ClassName    string
	FacultyEmail string
}

type ScheduleStore interface {
	// Create fails with Conflict when (DayOfWeek, PeriodID) already exists.
	Create(ctx context.Context, p *model.SchedulePeriod) error
	List(ctx context.Context, f ScheduleFilter) ([]model.SchedulePeriod, error)
	Delete(ctx context.Context, id string) error
}

// LedgerFilter narrows attendance listings. PeriodID nil means any period
// (0 is a real value: the unscoped daily mark).
type LedgerFilter struct {
	StudentID string
	Date      string
	PeriodID  *int
	From, To  string
}

type LedgerStore interface {
	// Upsert performs the single atomic conditional write keyed on
	// (StudentID, Date, PeriodID): insert when absent, otherwise overwrite
	// Status, MarkedAt and Source. Returns the post-write record.
	Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	List(ctx context.Context, f LedgerFilter) ([]model.AttendanceRecord, error)
	// CountRange returns total and present counts for a student between two
	// dates inclusive.
	CountRange(ctx context.Context, studentID, from, to string) (total, present int, err error)
	// DayStats tallies all marks recorded on one calendar date.
	DayStats(ctx context.Context, date string) (model.DayStat, error)
}

// LeaveFilter narrows leave-request listings. StudentIDs, when non-nil,
// restricts to those students (incharge department scoping).
type LeaveFilter struct {
	StudentID  string
	FacultyID  string
	StudentIDs []string
}

type LeaveStore interface {
	Create(ctx context.Context, lr *model.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*model.LeaveRequest, error)
	List(ctx context.Context, f LeaveFilter) ([]model.LeaveRequest, error)
	// Decide moves a pending request to a terminal status. It is a single
	// conditional write: NotFound when the id is unknown, Conflict when the
	// request was already decided.
	Decide(ctx context.Context, id, status string) (*model.LeaveRequest, error)
	CountPending(ctx context.Context) (int, error)
}

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	StudentID  string
	StudentIDs []string
}

type ComplaintStore interface {
	Create(ctx context.Context, c *model.Complaint) error
	List(ctx context.Context, f ComplaintFilter) ([]model.Complaint, error)
	// SetStatus transitions freely among pending/resolved/dismissed.
	SetStatus(ctx context.Context, id, status string) (*model.Complaint, error)
	CountPending(ctx context.Context) (int, error)
}

type CodeStore interface {
	// Claim atomically marks an unused activation code as used. Returns
	// NotFound when the code is unknown or already spent.
	Claim(ctx context.Context, code string) error
	Create(ctx context.Context, code string) error
}
