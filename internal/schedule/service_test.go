package schedule

import (
	"context"
	"testing"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

func admin() access.Identity {
	return access.Identity{UserID: "a1", Role: model.RoleAdmin}
}

func seedSlot(t *testing.T, svc *Service, day, period int, start, end string) {
	t.Helper()
	err := svc.Create(context.Background(), admin(), &model.SchedulePeriod{
		DayOfWeek: day, PeriodID: period, Subject: "Subject", StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatalf("seed slot %d/%d: %v", day, period, err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	cases := []model.SchedulePeriod{
		{DayOfWeek: 7, PeriodID: 1, Subject: "x", StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: 1, PeriodID: -1, Subject: "x", StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: 1, PeriodID: 1, StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: 1, PeriodID: 1, Subject: "x", StartTime: "9am", EndTime: "10:00"},
		{DayOfWeek: 1, PeriodID: 1, Subject: "x", StartTime: "10:00", EndTime: "09:00"},
	}
	for i, p := range cases {
		if err := svc.Create(ctx, admin(), &p); !apperr.Is(err, apperr.KindInvalid) {
			t.Errorf("case %d: want invalid, got %v", i, err)
		}
	}

	student := access.Identity{UserID: "s1", Role: model.RoleStudent}
	p := model.SchedulePeriod{DayOfWeek: 1, PeriodID: 1, Subject: "x", StartTime: "09:00", EndTime: "10:00"}
	if err := svc.Create(ctx, student, &p); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student create: want forbidden, got %v", err)
	}
}

func TestCreateDuplicateSlot(t *testing.T) {
	svc := NewService(store.NewMemory())
	seedSlot(t, svc, 1, 1, "09:00", "10:00")
	err := svc.Create(context.Background(), admin(), &model.SchedulePeriod{
		DayOfWeek: 1, PeriodID: 1, Subject: "another", StartTime: "11:00", EndTime: "12:00",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestResolveCurrent(t *testing.T) {
	svc := NewService(store.NewMemory())
	seedSlot(t, svc, 1, 1, "09:00", "09:50")
	seedSlot(t, svc, 1, 2, "10:00", "10:50")
	seedSlot(t, svc, 2, 3, "09:00", "09:50")
	ctx := context.Background()

	cases := []struct {
		day    int
		at     string
		period int
		ok     bool
	}{
		{1, "09:00", 1, true},  // start inclusive
		{1, "09:49", 1, true},
		{1, "09:50", 0, false}, // end exclusive
		{1, "09:55", 0, false}, // gap between periods
		{1, "10:30", 2, true},
		{2, "09:30", 3, true},
		{3, "09:30", 0, false}, // no slots that day
	}
	for _, tc := range cases {
		period, ok, err := svc.ResolveCurrent(ctx, tc.day, tc.at)
		if err != nil {
			t.Fatalf("resolve day=%d at=%s: %v", tc.day, tc.at, err)
		}
		if ok != tc.ok || period != tc.period {
			t.Errorf("resolve day=%d at=%s = (%d, %v), want (%d, %v)", tc.day, tc.at, period, ok, tc.period, tc.ok)
		}
	}

	if _, _, err := svc.ResolveCurrent(ctx, 9, "09:00"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("bad day: want invalid, got %v", err)
	}
	if _, _, err := svc.ResolveCurrent(ctx, 1, "late"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("bad time: want invalid, got %v", err)
	}
}

func TestResolveCurrentOverlap(t *testing.T) {
	svc := NewService(store.NewMemory())
	// Overlapping windows are a data-entry anomaly; the resolver must still
	// pick the same slot every time: earliest start, then lowest period id.
	seedSlot(t, svc, 4, 5, "09:30", "10:30")
	seedSlot(t, svc, 4, 2, "09:00", "10:00")
	seedSlot(t, svc, 4, 7, "11:00", "12:00")
	seedSlot(t, svc, 4, 6, "11:00", "12:00")
	ctx := context.Background()

	cases := []struct {
		at     string
		period int
	}{
		{"09:45", 2}, // both 2 and 5 contain it; 2 starts earlier
		{"10:15", 5}, // 2 has ended
		{"11:30", 6}, // equal start; lower period id wins
	}
	for _, tc := range cases {
		period, ok, err := svc.ResolveCurrent(ctx, 4, tc.at)
		if err != nil {
			t.Fatalf("resolve at=%s: %v", tc.at, err)
		}
		if !ok || period != tc.period {
			t.Errorf("resolve at=%s = (%d, %v), want (%d, true)", tc.at, period, ok, tc.period)
		}
	}
}

func TestListScopesStudents(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st)
	ctx := context.Background()

	if err := st.Schedule().Create(ctx, &model.SchedulePeriod{
		DayOfWeek: 1, PeriodID: 1, Subject: "Own", StartTime: "09:00", EndTime: "10:00",
		Department: "CSE", ClassName: "A",
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.Schedule().Create(ctx, &model.SchedulePeriod{
		DayOfWeek: 1, PeriodID: 2, Subject: "Other", StartTime: "10:00", EndTime: "11:00",
		Department: "ECE", ClassName: "B",
	}); err != nil {
		t.Fatal(err)
	}

	student := access.Identity{UserID: "s1", Role: model.RoleStudent, Department: "CSE", ClassName: "A"}
	periods, err := svc.List(ctx, student, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 || periods[0].Subject != "Own" {
		t.Fatalf("student sees %d periods, want own class only: %+v", len(periods), periods)
	}
}
