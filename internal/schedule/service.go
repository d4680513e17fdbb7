// Package schedule manages the weekly timetable and resolves which period
// is current at a given moment.
package schedule

import (
	"context"
	"time"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Service wraps timetable reads/writes with access scoping.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// Create adds a timetable slot. (day, period) duplicates surface as Conflict
// from the store.
func (s *Service) Create(ctx context.Context, caller access.Identity, p *model.SchedulePeriod) error {
	if err := access.RequireRoles(caller, model.RoleAdmin, model.RoleIncharge); err != nil {
		return err
	}
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return apperr.Invalid("day_of_week must be 0..6")
	}
	if p.PeriodID < 0 {
		return apperr.Invalid("period_id must be >= 0")
	}
	if p.Subject == "" {
		return apperr.Invalid("subject required")
	}
	if !validClock(p.StartTime) || !validClock(p.EndTime) {
		return apperr.Invalid("start_time and end_time must be HH:MM")
	}
	if p.EndTime <= p.StartTime {
		return apperr.Invalid("end_time must be after start_time")
	}
	return s.store.Schedule().Create(ctx, p)
}

// List returns timetable entries, day -1 meaning all days. Students are
// scoped to their own department/class.
func (s *Service) List(ctx context.Context, caller access.Identity, day int) ([]model.SchedulePeriod, error) {
	if day < -1 || day > 6 {
		return nil, apperr.Invalid("day must be 0..6")
	}
	f := access.ScopeTimetable(caller, store.ScheduleFilter{Day: day})
	return s.store.Schedule().List(ctx, f)
}

// MySchedule returns the slots assigned to the calling faculty member,
// matched strictly by the verified email in their token.
func (s *Service) MySchedule(ctx context.Context, caller access.Identity) ([]model.SchedulePeriod, error) {
	if err := access.RequireRoles(caller, model.RoleFaculty, model.RoleIncharge, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.Schedule().List(ctx, store.ScheduleFilter{Day: -1, FacultyEmail: caller.Email})
}

// Delete removes a timetable slot.
func (s *Service) Delete(ctx context.Context, caller access.Identity, id string) error {
	if err := access.RequireRoles(caller, model.RoleAdmin, model.RoleIncharge); err != nil {
		return err
	}
	return s.store.Schedule().Delete(ctx, id)
}

// ResolveCurrent returns the period whose [start, end) window contains
// timeOfDay ("HH:MM") on the given weekday, or ok=false when none matches.
// The store lists slots sorted by (start time, period id), so overlapping
// windows - a data-entry anomaly - resolve to the same period on every call.
func (s *Service) ResolveCurrent(ctx context.Context, day int, timeOfDay string) (int, bool, error) {
	if day < 0 || day > 6 {
		return 0, false, apperr.Invalid("day must be 0..6")
	}
	if !validClock(timeOfDay) {
		return 0, false, apperr.Invalid("time must be HH:MM")
	}
	periods, err := s.store.Schedule().List(ctx, store.ScheduleFilter{Day: day})
	if err != nil {
		return 0, false, err
	}
	for _, p := range periods {
		if p.StartTime <= timeOfDay && timeOfDay < p.EndTime {
			return p.PeriodID, true, nil
		}
	}
	return 0, false, nil
}

// ResolveNow resolves the current period for the provided wall-clock time.
func (s *Service) ResolveNow(ctx context.Context, now time.Time) (int, bool, error) {
	return s.ResolveCurrent(ctx, int(now.Weekday()), now.Format("15:04"))
}
