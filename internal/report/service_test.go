package report

import (
	"context"
	"testing"
	"time"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC) // a Monday
}

func newFixture(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	svc := NewService(st)
	svc.now = fixedNow
	return svc, st
}

func mark(t *testing.T, st store.Store, studentID, date string, period int, status string) {
	t.Helper()
	_, err := st.Ledger().Upsert(context.Background(), model.AttendanceRecord{
		StudentID: studentID, Date: date, PeriodID: period, Status: status,
		MarkedAt: fixedNow(), Source: model.SourceWeb,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func staff() access.Identity {
	return access.Identity{UserID: "a1", Role: model.RoleAdmin}
}

func TestPercentageRounding(t *testing.T) {
	svc, st := newFixture(t)
	// 7 of 9 present: 77.777... rounds to 77.78.
	for i := 1; i <= 9; i++ {
		status := model.StatusPresent
		if i > 7 {
			status = model.StatusAbsent
		}
		mark(t, st, "s1", "2026-03-02", i, status)
	}

	stat, err := svc.Percentage(context.Background(), staff(), "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Total != 9 || stat.Present != 7 {
		t.Fatalf("counts = %+v", stat)
	}
	if stat.Percent != 77.78 {
		t.Fatalf("percent = %v, want 77.78", stat.Percent)
	}
}

func TestPercentageEmptyRange(t *testing.T) {
	svc, _ := newFixture(t)
	stat, err := svc.Percentage(context.Background(), staff(), "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Total != 0 || stat.Present != 0 || stat.Percent != 0 {
		t.Fatalf("empty range stat = %+v, want zeros", stat)
	}
}

func TestPercentagePinsStudents(t *testing.T) {
	svc, st := newFixture(t)
	mark(t, st, "s1", "2026-03-02", 1, model.StatusPresent)
	mark(t, st, "s2", "2026-03-02", 1, model.StatusAbsent)

	student := access.Identity{UserID: "s1", Role: model.RoleStudent}
	stat, err := svc.Percentage(context.Background(), student, "s2", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Present != 1 || stat.Total != 1 {
		t.Fatalf("student was not pinned to own records: %+v", stat)
	}
}

func seedSlot(t *testing.T, st store.Store, day, period int, subject string) {
	t.Helper()
	err := st.Schedule().Create(context.Background(), &model.SchedulePeriod{
		DayOfWeek: day, PeriodID: period, Subject: subject,
		StartTime: "09:00", EndTime: "09:50",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSubjectWiseExcludesUnmatched(t *testing.T) {
	svc, st := newFixture(t)
	seedSlot(t, st, 1, 1, "Maths") // 2026-03-02 is a Monday (weekday 1)
	mark(t, st, "s1", "2026-03-02", 1, model.StatusPresent)
	mark(t, st, "s1", "2026-03-02", 9, model.StatusPresent) // no slot for period 9

	stats, err := svc.SubjectWise(context.Background(), staff(), "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("want 1 subject, got %+v", stats)
	}
	if stats[0].Subject != "Maths" || stats[0].Total != 1 || stats[0].Percent != 100 {
		t.Fatalf("subject stat = %+v", stats[0])
	}

	// The unmatched mark still counts in the plain percentage.
	pct, err := svc.Percentage(context.Background(), staff(), "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if pct.Total != 2 {
		t.Fatalf("percentage total = %d, want 2", pct.Total)
	}
}

func TestReportsNarrowFacultyToAssignedPeriods(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	err := st.Schedule().Create(ctx, &model.SchedulePeriod{
		DayOfWeek: 1, PeriodID: 1, Subject: "Maths",
		StartTime: "09:00", EndTime: "09:50", FacultyEmail: "jane@vishnu.edu.in",
	})
	if err != nil {
		t.Fatal(err)
	}
	mark(t, st, "s1", "2026-03-02", 1, model.StatusPresent) // Jane's period
	mark(t, st, "s1", "2026-03-02", 5, model.StatusAbsent)  // someone else's

	jane := access.Identity{UserID: "f1", Role: model.RoleFaculty, Email: "jane@vishnu.edu.in"}
	stat, err := svc.Percentage(ctx, jane, "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Total != 1 || stat.Present != 1 {
		t.Fatalf("faculty percentage counted rows outside assigned periods: %+v", stat)
	}

	rows, err := svc.History(ctx, jane, "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].PeriodID != 1 {
		t.Fatalf("faculty history = %+v, want period 1 only", rows)
	}

	// Admin still counts everything.
	stat, err = svc.Percentage(ctx, staff(), "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Total != 2 {
		t.Fatalf("admin percentage total = %d, want 2", stat.Total)
	}

	idle := access.Identity{UserID: "f2", Role: model.RoleFaculty, Email: "idle@vishnu.edu.in"}
	stat, err = svc.Percentage(ctx, idle, "s1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if stat.Total != 0 {
		t.Fatalf("faculty with no assigned periods counted %d rows", stat.Total)
	}
}

func TestFacultyStats(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	err := st.Schedule().Create(ctx, &model.SchedulePeriod{
		DayOfWeek: 1, PeriodID: 1, Subject: "Maths",
		StartTime: "09:00", EndTime: "09:50", FacultyEmail: "jane@vishnu.edu.in",
	})
	if err != nil {
		t.Fatal(err)
	}
	// Two Mondays, two students.
	mark(t, st, "s1", "2026-03-02", 1, model.StatusPresent)
	mark(t, st, "s2", "2026-03-02", 1, model.StatusAbsent)
	mark(t, st, "s1", "2026-03-09", 1, model.StatusPresent)
	// Another faculty's period is ignored.
	mark(t, st, "s1", "2026-03-02", 5, model.StatusPresent)

	faculty := access.Identity{UserID: "f1", Role: model.RoleFaculty, Email: "jane@vishnu.edu.in"}
	stats, err := svc.FacultyStats(ctx, faculty, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("want 1 stat row, got %+v", stats)
	}
	got := stats[0]
	if got.TotalClasses != 2 || got.TotalPresent != 2 || got.TotalAbsent != 1 || got.UniqueStudents != 2 {
		t.Fatalf("faculty stat = %+v", got)
	}

	if _, err := svc.FacultyStats(ctx, staff(), "", ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("admin faculty stats: want forbidden, got %v", err)
	}
}

// flakyStore simulates a deployment where the complaint collection is not
// provisioned yet.
type flakyStore struct {
	store.Store
}

func (f flakyStore) Complaints() store.ComplaintStore {
	return flakyComplaints{f.Store.Complaints()}
}

type flakyComplaints struct {
	store.ComplaintStore
}

func (flakyComplaints) CountPending(context.Context) (int, error) {
	return 0, apperr.Unavailable("complaints collection missing")
}

func TestOverallToleratesMissingCollections(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	err := st.Users().Create(ctx, &model.User{
		ID: "s1", Name: "Student", Email: "24pa1a0001@vishnu.edu.in",
		Role: model.RoleStudent, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Leaves().Create(ctx, &model.LeaveRequest{StudentID: "s1", FacultyID: "f1"}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(flakyStore{st})
	svc.now = fixedNow
	mark(t, flakyStore{st}, "s1", "2026-03-02", 1, model.StatusPresent)

	stats, err := svc.Overall(ctx, staff())
	if err != nil {
		t.Fatalf("overall should tolerate a missing collection: %v", err)
	}
	if stats.TotalStudents != 1 || stats.PendingLeaves != 1 {
		t.Fatalf("overall = %+v", stats)
	}
	if stats.PendingComplaints != 0 {
		t.Fatalf("pending complaints = %d, want 0 fallback", stats.PendingComplaints)
	}
	if stats.TodayAttendance.Present != 1 {
		t.Fatalf("today attendance = %+v", stats.TodayAttendance)
	}

	student := access.Identity{UserID: "s1", Role: model.RoleStudent}
	if _, err := svc.Overall(ctx, student); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student overall: want forbidden, got %v", err)
	}
}
