// Package ledger records presence marks. The one concurrency hazard in the
// system lives here: marks for the same (student, date, period) key must
// collapse to a single row, last write wins, via the store's atomic upsert.
package ledger

import (
	"context"
	"time"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/hardware"
	"campustrack/internal/metrics"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Service coordinates validation, access scoping, and the ledger upsert.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// MarkRequest is a single mark. Date empty means today; PeriodID 0 is the
// unscoped daily mark.
type MarkRequest struct {
	StudentID string
	Date      string
	PeriodID  int
	Status    string
	Source    string
}

func (s *Service) validate(ctx context.Context, req *MarkRequest) (*model.User, error) {
	if !model.ValidStatus(req.Status) {
		return nil, apperr.Invalid("status must be P or A")
	}
	if req.PeriodID < 0 {
		return nil, apperr.Invalid("period_id must be >= 0")
	}
	if req.Date == "" {
		req.Date = model.DateOf(s.now())
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, apperr.Invalid("date must be YYYY-MM-DD")
	}
	student, err := s.store.Users().GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.Role != model.RoleStudent || !student.IsActive {
		return nil, apperr.NotFound("student not found")
	}
	return student, nil
}

// Mark records a manual mark on behalf of a staff caller.
func (s *Service) Mark(ctx context.Context, caller access.Identity, req MarkRequest) (model.AttendanceRecord, error) {
	if err := access.RequireRoles(caller, model.RoleFaculty, model.RoleIncharge, model.RoleAdmin); err != nil {
		return model.AttendanceRecord{}, err
	}
	if req.Source == "" {
		req.Source = model.SourceWeb
	}
	if _, err := s.validate(ctx, &req); err != nil {
		return model.AttendanceRecord{}, err
	}
	return s.upsert(ctx, req)
}

func (s *Service) upsert(ctx context.Context, req MarkRequest) (model.AttendanceRecord, error) {
	rec, err := s.store.Ledger().Upsert(ctx, model.AttendanceRecord{
		StudentID: req.StudentID,
		Date:      req.Date,
		PeriodID:  req.PeriodID,
		Status:    req.Status,
		MarkedAt:  s.now().UTC(),
		Source:    req.Source,
	})
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.MarksTotal.WithLabelValues(req.Source).Inc()
	return rec, nil
}

// TagMark is a scan reported by a hardware reader, keyed by tag UID.
type TagMark struct {
	UID      string
	Status   string // "IN" normalizes to present
	Date     string
	PeriodID int
}

// MarkByTag resolves the tag to a student and records a hardware-origin
// mark. The returned student feeds the scan-log entry.
func (s *Service) MarkByTag(ctx context.Context, tm TagMark) (model.AttendanceRecord, *model.User, error) {
	if tm.UID == "" {
		return model.AttendanceRecord{}, nil, apperr.Invalid("uid required")
	}
	student, err := s.store.Users().GetByUID(ctx, tm.UID)
	if err != nil {
		return model.AttendanceRecord{}, nil, err
	}
	status := tm.Status
	if status == "IN" || status == "" {
		status = model.StatusPresent
	}
	req := MarkRequest{
		StudentID: student.ID,
		Date:      tm.Date,
		PeriodID:  tm.PeriodID,
		Status:    status,
		Source:    model.SourceHardware,
	}
	if _, err := s.validate(ctx, &req); err != nil {
		return model.AttendanceRecord{}, nil, err
	}
	rec, err := s.upsert(ctx, req)
	return rec, student, err
}

// facultySlots resolves the caller's assigned slot set; nil means the
// caller is not subject to period narrowing.
func (s *Service) facultySlots(ctx context.Context, caller access.Identity) (map[access.SlotKey]bool, error) {
	if caller.Role != model.RoleFaculty {
		return nil, nil
	}
	slots, err := s.store.Schedule().List(ctx, store.ScheduleFilter{Day: -1, FacultyEmail: caller.Email})
	if err != nil {
		return nil, err
	}
	return access.SlotKeysOf(slots), nil
}

// List returns ledger rows with the caller's scope applied. Faculty only
// see rows joined to their assigned periods.
func (s *Service) List(ctx context.Context, caller access.Identity, f store.LedgerFilter) ([]model.AttendanceRecord, error) {
	records, err := s.store.Ledger().List(ctx, access.ScopeLedger(caller, f))
	if err != nil {
		return nil, err
	}
	allowed, err := s.facultySlots(ctx, caller)
	if err != nil {
		return nil, err
	}
	if allowed != nil {
		records = access.NarrowToSlots(records, allowed)
	}
	return records, nil
}

// TodayRow is one student's mark in the today view.
type TodayRow struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	MarkedAt  time.Time `json:"marked_at"`
	Source    string    `json:"source"`
}

// Today lists the current date's marks, optionally restricted to one
// period, with student identity joined in.
func (s *Service) Today(ctx context.Context, caller access.Identity, periodID *int) ([]TodayRow, error) {
	f := access.ScopeLedger(caller, store.LedgerFilter{Date: model.DateOf(s.now()), PeriodID: periodID})
	records, err := s.store.Ledger().List(ctx, f)
	if err != nil {
		return nil, err
	}
	allowed, err := s.facultySlots(ctx, caller)
	if err != nil {
		return nil, err
	}
	if allowed != nil {
		records = access.NarrowToSlots(records, allowed)
	}
	rows := make([]TodayRow, 0, len(records))
	for _, rec := range records {
		row := TodayRow{StudentID: rec.StudentID, Name: "Unknown", Email: "N/A",
			Status: rec.Status, MarkedAt: rec.MarkedAt, Source: rec.Source}
		if student, err := s.store.Users().GetByID(ctx, rec.StudentID); err == nil {
			row.Name = student.Name
			row.Email = student.Email
			if student.UID != "" {
				row.StudentID = student.UID
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BatchResult reports how a CSV ingest went.
type BatchResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// IngestBatch applies scanner CSV rows one ledger write at a time. Rows with
// unresolvable student references or bad values are skipped, never aborting
// the batch.
func (s *Service) IngestBatch(ctx context.Context, caller access.Identity, rows []hardware.Row) (BatchResult, error) {
	if err := access.RequireRoles(caller, model.RoleAdmin, model.RoleIncharge); err != nil {
		return BatchResult{}, err
	}
	var res BatchResult
	for _, row := range rows {
		student, err := s.resolveRef(ctx, row.StudentRef)
		if err != nil {
			res.Skipped++
			metrics.BatchRowsSkipped.Inc()
			continue
		}
		req := MarkRequest{
			StudentID: student.ID,
			Date:      row.Date,
			PeriodID:  row.PeriodID,
			Status:    row.Status,
			Source:    model.SourceCSV,
		}
		if _, err := s.validate(ctx, &req); err != nil {
			res.Skipped++
			metrics.BatchRowsSkipped.Inc()
			continue
		}
		if _, err := s.upsert(ctx, req); err != nil {
			res.Skipped++
			metrics.BatchRowsSkipped.Inc()
			continue
		}
		res.Applied++
		metrics.BatchRowsApplied.Inc()
	}
	return res, nil
}

// resolveRef tries tag UID, then email, then id lookup, matching how
// scanner exports reference students.
func (s *Service) resolveRef(ctx context.Context, ref string) (*model.User, error) {
	if ref == "" {
		return nil, apperr.Invalid("empty student reference")
	}
	users := s.store.Users()
	if u, err := users.GetByUID(ctx, ref); err == nil {
		return u, nil
	}
	if u, err := users.GetByEmail(ctx, ref); err == nil {
		return u, nil
	}
	return users.GetByID(ctx, ref)
}
