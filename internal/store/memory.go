package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// Memory is a map-backed Store for dev mode and tests. It enforces the same
// uniqueness invariants as the database backends under a single mutex, so the
// ledger upsert is atomic here too.
type Memory struct {
	mu         sync.Mutex
	users      map[string]model.User
	schedule   map[string]model.SchedulePeriod
	ledger     map[string]model.AttendanceRecord // key: student|date|period
	leaves     map[string]model.LeaveRequest
	complaints map[string]model.Complaint
	codes      map[string]bool // code -> used
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]model.User),
		schedule:   make(map[string]model.SchedulePeriod),
		ledger:     make(map[string]model.AttendanceRecord),
		leaves:     make(map[string]model.LeaveRequest),
		complaints: make(map[string]model.Complaint),
		codes:      make(map[string]bool),
	}
}

func (m *Memory) Users() UserStore           { return (*memUsers)(m) }
func (m *Memory) Schedule() ScheduleStore    { return (*memSchedule)(m) }
func (m *Memory) Ledger() LedgerStore        { return (*memLedger)(m) }
func (m *Memory) Leaves() LeaveStore         { return (*memLeaves)(m) }
func (m *Memory) Complaints() ComplaintStore { return (*memComplaints)(m) }
func (m *Memory) Codes() CodeStore           { return (*memCodes)(m) }
func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

type memUsers Memory

func (r *memUsers) Create(_ context.Context, u *model.User) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.Conflict("user already exists")
		}
		if u.UID != "" && existing.UID == u.UID {
			return apperr.Conflict("user already exists")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (r *memUsers) get(match func(model.User) bool) (*model.User, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (r *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	return r.get(func(u model.User) bool { return u.ID == id })
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.get(func(u model.User) bool { return u.Email == email })
}

func (r *memUsers) GetByUID(_ context.Context, uid string) (*model.User, error) {
	if uid == "" {
		return nil, apperr.NotFound("user not found")
	}
	return r.get(func(u model.User) bool { return u.UID == uid })
}

func (r *memUsers) List(_ context.Context, f UserFilter) ([]model.User, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Department != "" && u.Department != f.Department {
			continue
		}
		if f.ClassName != "" && u.ClassName != f.ClassName {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(u.Name), s) && !strings.Contains(strings.ToLower(u.Email), s) {
				continue
			}
		}
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (r *memUsers) Update(_ context.Context, u *model.User) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return apperr.NotFound("user not found")
	}
	for _, existing := range m.users {
		if existing.ID == u.ID {
			continue
		}
		if existing.Email == u.Email {
			return apperr.Conflict("user already exists")
		}
		if u.UID != "" && existing.UID == u.UID {
			return apperr.Conflict("user already exists")
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(m.users, id)
	return nil
}

func (r *memUsers) CountActiveStudents(_ context.Context) (int, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.users {
		if u.Role == model.RoleStudent && u.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *memUsers) StudentIDsByDepartment(_ context.Context, department string) ([]string, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, u := range m.users {
		if u.Role == model.RoleStudent && u.Department == department {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memSchedule Memory

func (r *memSchedule) Create(_ context.Context, p *model.SchedulePeriod) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schedule {
		if existing.DayOfWeek == p.DayOfWeek && existing.PeriodID == p.PeriodID {
			return apperr.Conflict("timetable slot already exists")
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.schedule[p.ID] = *p
	return nil
}

func (r *memSchedule) List(_ context.Context, f ScheduleFilter) ([]model.SchedulePeriod, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.SchedulePeriod
	for _, p := range m.schedule {
		if f.Day >= 0 && p.DayOfWeek != f.Day {
			continue
		}
		if f.Department != "" && p.Department != f.Department {
			continue
		}
		if f.ClassName != "" && p.ClassName != f.ClassName {
			continue
		}
		if f.FacultyEmail != "" && p.FacultyEmail != f.FacultyEmail {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DayOfWeek != res[j].DayOfWeek {
			return res[i].DayOfWeek < res[j].DayOfWeek
		}
		if res[i].StartTime != res[j].StartTime {
			return res[i].StartTime < res[j].StartTime
		}
		return res[i].PeriodID < res[j].PeriodID
	})
	return res, nil
}

func (r *memSchedule) Delete(_ context.Context, id string) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedule[id]; !ok {
		return apperr.NotFound("timetable entry not found")
	}
	delete(m.schedule, id)
	return nil
}

type memLedger Memory

func ledgerKey(studentID, date string, periodID int) string {
	return studentID + "|" + date + "|" + strconv.Itoa(periodID)
}

func (r *memLedger) Upsert(_ context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	key := ledgerKey(rec.StudentID, rec.Date, rec.PeriodID)
	if existing, ok := m.ledger[key]; ok {
		existing.Status = rec.Status
		existing.MarkedAt = rec.MarkedAt
		existing.Source = rec.Source
		m.ledger[key] = existing
		return existing, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.ledger[key] = rec
	return rec, nil
}

func (r *memLedger) List(_ context.Context, f LedgerFilter) ([]model.AttendanceRecord, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.AttendanceRecord
	for _, rec := range m.ledger {
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.Date != "" && rec.Date != f.Date {
			continue
		}
		if f.PeriodID != nil && rec.PeriodID != *f.PeriodID {
			continue
		}
		if f.From != "" && rec.Date < f.From {
			continue
		}
		if f.To != "" && rec.Date > f.To {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].MarkedAt.After(res[j].MarkedAt) })
	return res, nil
}

func (r *memLedger) CountRange(_ context.Context, studentID, from, to string) (int, int, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	total, present := 0, 0
	for _, rec := range m.ledger {
		if rec.StudentID != studentID || rec.Date < from || rec.Date > to {
			continue
		}
		total++
		if rec.Status == model.StatusPresent {
			present++
		}
	}
	return total, present, nil
}

func (r *memLedger) DayStats(_ context.Context, date string) (model.DayStat, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var s model.DayStat
	for _, rec := range m.ledger {
		if rec.Date != date {
			continue
		}
		s.Total++
		switch rec.Status {
		case model.StatusPresent:
			s.Present++
		case model.StatusAbsent:
			s.Absent++
		}
	}
	return s, nil
}

type memLeaves Memory

func (r *memLeaves) Create(_ context.Context, lr *model.LeaveRequest) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if lr.ID == "" {
		lr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lr.CreatedAt, lr.UpdatedAt = now, now
	if lr.Status == "" {
		lr.Status = model.LeavePending
	}
	m.leaves[lr.ID] = *lr
	return nil
}

func (r *memLeaves) GetByID(_ context.Context, id string) (*model.LeaveRequest, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, ok := m.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave request not found")
	}
	return &lr, nil
}

func (r *memLeaves) List(_ context.Context, f LeaveFilter) ([]model.LeaveRequest, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	if f.StudentIDs != nil {
		for _, id := range f.StudentIDs {
			allowed[id] = true
		}
	}
	var res []model.LeaveRequest
	for _, lr := range m.leaves {
		if f.StudentID != "" && lr.StudentID != f.StudentID {
			continue
		}
		if f.FacultyID != "" && lr.FacultyID != f.FacultyID {
			continue
		}
		if f.StudentIDs != nil && !allowed[lr.StudentID] {
			continue
		}
		res = append(res, lr)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (r *memLeaves) Decide(_ context.Context, id, status string) (*model.LeaveRequest, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, ok := m.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave request not found")
	}
	if lr.Status != model.LeavePending {
		return nil, apperr.Conflict("leave request already decided")
	}
	lr.Status = status
	lr.UpdatedAt = time.Now().UTC()
	m.leaves[id] = lr
	return &lr, nil
}

func (r *memLeaves) CountPending(_ context.Context) (int, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, lr := range m.leaves {
		if lr.Status == model.LeavePending {
			count++
		}
	}
	return count, nil
}

type memComplaints Memory

func (r *memComplaints) Create(_ context.Context, c *model.Complaint) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Status == "" {
		c.Status = model.ComplaintPending
	}
	m.complaints[c.ID] = *c
	return nil
}

func (r *memComplaints) List(_ context.Context, f ComplaintFilter) ([]model.Complaint, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	if f.StudentIDs != nil {
		for _, id := range f.StudentIDs {
			allowed[id] = true
		}
	}
	var res []model.Complaint
	for _, c := range m.complaints {
		if f.StudentID != "" && c.StudentID != f.StudentID {
			continue
		}
		if f.StudentIDs != nil && !allowed[c.StudentID] {
			continue
		}
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (r *memComplaints) SetStatus(_ context.Context, id, status string) (*model.Complaint, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, apperr.NotFound("complaint not found")
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	m.complaints[id] = c
	return &c, nil
}

func (r *memComplaints) CountPending(_ context.Context) (int, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.complaints {
		if c.Status == model.ComplaintPending {
			count++
		}
	}
	return count, nil
}

type memCodes Memory

func (r *memCodes) Claim(_ context.Context, code string) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	used, ok := m.codes[code]
	if !ok || used {
		return apperr.NotFound("invalid or used activation code")
	}
	m.codes[code] = true
	return nil
}

func (r *memCodes) Create(_ context.Context, code string) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code]; ok {
		return apperr.Conflict("activation code already exists")
	}
	m.codes[code] = false
	return nil
}
