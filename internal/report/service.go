// Package report computes attendance aggregates. Two scopes exist on
// purpose: the plain percentage counts every mark, while the subject-wise
// view only counts marks that match a known timetable slot.
package report

import (
	"context"
	"math"
	"sort"
	"time"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Service reads the ledger and timetable to produce summary views.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// percent applies the two-decimal rounding rule, returning 0 for an empty
// range rather than an error.
func percent(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

func (s *Service) window(from, to string) (string, string) {
	if from == "" {
		from = "1970-01-01"
	}
	if to == "" {
		to = model.DateOf(s.now())
	}
	return from, to
}

// ledgerRows lists ledger rows for a report. Faculty callers only see rows
// joined to their assigned periods; students are already pinned to
// themselves by ReportTarget.
func (s *Service) ledgerRows(ctx context.Context, caller access.Identity, f store.LedgerFilter) ([]model.AttendanceRecord, error) {
	records, err := s.store.Ledger().List(ctx, f)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleFaculty {
		return records, nil
	}
	slots, err := s.store.Schedule().List(ctx, store.ScheduleFilter{Day: -1, FacultyEmail: caller.Email})
	if err != nil {
		return nil, err
	}
	return access.NarrowToSlots(records, access.SlotKeysOf(slots)), nil
}

// Percentage returns {total, present, percent} for one student over a date
// range. The caller's scope decides which student may be targeted and, for
// faculty, which rows count.
func (s *Service) Percentage(ctx context.Context, caller access.Identity, studentID, from, to string) (model.PercentStat, error) {
	target, err := access.ReportTarget(caller, studentID)
	if err != nil {
		return model.PercentStat{}, err
	}
	from, to = s.window(from, to)
	if caller.Role == model.RoleFaculty {
		records, err := s.ledgerRows(ctx, caller, store.LedgerFilter{StudentID: target, From: from, To: to})
		if err != nil {
			return model.PercentStat{}, err
		}
		var total, present int
		for _, rec := range records {
			total++
			if rec.Status == model.StatusPresent {
				present++
			}
		}
		return model.PercentStat{Total: total, Present: present, Percent: percent(present, total)}, nil
	}
	total, present, err := s.store.Ledger().CountRange(ctx, target, from, to)
	if err != nil {
		return model.PercentStat{}, err
	}
	return model.PercentStat{Total: total, Present: present, Percent: percent(present, total)}, nil
}

// HistoryRow is a ledger record with its timetable slot joined in when the
// (period, weekday) pair matches a known slot.
type HistoryRow struct {
	model.AttendanceRecord
	Subject   string `json:"subject,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// slotKey indexes timetable slots by weekday and period.
type slotKey struct {
	day    int
	period int
}

func (s *Service) slotIndex(ctx context.Context) (map[slotKey]model.SchedulePeriod, error) {
	slots, err := s.store.Schedule().List(ctx, store.ScheduleFilter{Day: -1})
	if err != nil {
		return nil, err
	}
	idx := make(map[slotKey]model.SchedulePeriod, len(slots))
	for _, p := range slots {
		key := slotKey{day: p.DayOfWeek, period: p.PeriodID}
		if _, ok := idx[key]; !ok {
			idx[key] = p
		}
	}
	return idx, nil
}

func weekdayOf(date string) (int, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return int(t.Weekday()), true
}

// History lists a student's marks over a range with subject labels
// left-joined from the timetable.
func (s *Service) History(ctx context.Context, caller access.Identity, studentID, from, to string) ([]HistoryRow, error) {
	target, err := access.ReportTarget(caller, studentID)
	if err != nil {
		return nil, err
	}
	from, to = s.window(from, to)
	records, err := s.ledgerRows(ctx, caller, store.LedgerFilter{StudentID: target, From: from, To: to})
	if err != nil {
		return nil, err
	}
	idx, err := s.slotIndex(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		row := HistoryRow{AttendanceRecord: rec}
		if day, ok := weekdayOf(rec.Date); ok {
			if slot, ok := idx[slotKey{day: day, period: rec.PeriodID}]; ok {
				row.Subject = slot.Subject
				row.StartTime = slot.StartTime
				row.EndTime = slot.EndTime
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SubjectWise groups a student's marks by subject. Marks whose (period,
// weekday) pair matches no timetable slot are excluded here; they still
// count in Percentage.
func (s *Service) SubjectWise(ctx context.Context, caller access.Identity, studentID, from, to string) ([]model.SubjectStat, error) {
	target, err := access.ReportTarget(caller, studentID)
	if err != nil {
		return nil, err
	}
	from, to = s.window(from, to)
	records, err := s.ledgerRows(ctx, caller, store.LedgerFilter{StudentID: target, From: from, To: to})
	if err != nil {
		return nil, err
	}
	idx, err := s.slotIndex(ctx)
	if err != nil {
		return nil, err
	}
	agg := map[string]*model.SubjectStat{}
	for _, rec := range records {
		day, ok := weekdayOf(rec.Date)
		if !ok {
			continue
		}
		slot, ok := idx[slotKey{day: day, period: rec.PeriodID}]
		if !ok {
			continue
		}
		stat, ok := agg[slot.Subject]
		if !ok {
			stat = &model.SubjectStat{Subject: slot.Subject}
			agg[slot.Subject] = stat
		}
		stat.Total++
		if rec.Status == model.StatusPresent {
			stat.Present++
		}
	}
	stats := make([]model.SubjectStat, 0, len(agg))
	for _, stat := range agg {
		stat.Percent = percent(stat.Present, stat.Total)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Subject < stats[j].Subject })
	return stats, nil
}

// FacultyStats aggregates marks in the caller's assigned periods by
// (subject, period): distinct class dates, present/absent tallies, and
// distinct students seen.
func (s *Service) FacultyStats(ctx context.Context, caller access.Identity, from, to string) ([]model.FacultyStat, error) {
	if err := access.RequireRoles(caller, model.RoleFaculty); err != nil {
		return nil, err
	}
	from, to = s.window(from, to)
	slots, err := s.store.Schedule().List(ctx, store.ScheduleFilter{Day: -1, FacultyEmail: caller.Email})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}
	mine := map[slotKey]model.SchedulePeriod{}
	for _, p := range slots {
		mine[slotKey{day: p.DayOfWeek, period: p.PeriodID}] = p
	}
	records, err := s.store.Ledger().List(ctx, store.LedgerFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	type bucket struct {
		stat     model.FacultyStat
		dates    map[string]bool
		students map[string]bool
	}
	agg := map[slotKey]*bucket{}
	for _, rec := range records {
		day, ok := weekdayOf(rec.Date)
		if !ok {
			continue
		}
		key := slotKey{day: day, period: rec.PeriodID}
		slot, ok := mine[key]
		if !ok {
			continue
		}
		b, ok := agg[key]
		if !ok {
			b = &bucket{
				stat:     model.FacultyStat{Subject: slot.Subject, PeriodID: slot.PeriodID},
				dates:    map[string]bool{},
				students: map[string]bool{},
			}
			agg[key] = b
		}
		b.dates[rec.Date] = true
		b.students[rec.StudentID] = true
		switch rec.Status {
		case model.StatusPresent:
			b.stat.TotalPresent++
		case model.StatusAbsent:
			b.stat.TotalAbsent++
		}
	}
	stats := make([]model.FacultyStat, 0, len(agg))
	for _, b := range agg {
		b.stat.TotalClasses = len(b.dates)
		b.stat.UniqueStudents = len(b.students)
		stats = append(stats, b.stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Subject != stats[j].Subject {
			return stats[i].Subject < stats[j].Subject
		}
		return stats[i].PeriodID < stats[j].PeriodID
	})
	return stats, nil
}

// Overall builds the staff dashboard summary. Pending counts from stores
// that are not yet provisioned (mid-migration deployments) degrade to zero
// instead of failing the whole call.
func (s *Service) Overall(ctx context.Context, caller access.Identity) (model.OverallStats, error) {
	if err := access.RequireRoles(caller, model.RoleIncharge, model.RoleAdmin); err != nil {
		return model.OverallStats{}, err
	}
	var out model.OverallStats
	students, err := s.store.Users().CountActiveStudents(ctx)
	if err != nil {
		return model.OverallStats{}, err
	}
	out.TotalStudents = students

	today, err := s.store.Ledger().DayStats(ctx, model.DateOf(s.now()))
	if err != nil {
		return model.OverallStats{}, err
	}
	out.TodayAttendance = today

	out.PendingLeaves, err = tolerateUnavailable(s.store.Leaves().CountPending(ctx))
	if err != nil {
		return model.OverallStats{}, err
	}
	out.PendingComplaints, err = tolerateUnavailable(s.store.Complaints().CountPending(ctx))
	if err != nil {
		return model.OverallStats{}, err
	}
	return out, nil
}

func tolerateUnavailable(count int, err error) (int, error) {
	if err != nil && apperr.Is(err, apperr.KindUnavailable) {
		return 0, nil
	}
	return count, err
}
