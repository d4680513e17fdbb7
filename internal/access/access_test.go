package access

import (
	"testing"

	"campustrack/internal/model"
	"campustrack/internal/store"
)

func TestScopeLedgerPinsStudents(t *testing.T) {
	student := Identity{UserID: "s1", Role: model.RoleStudent}
	f := ScopeLedger(student, store.LedgerFilter{StudentID: "someone-else"})
	if f.StudentID != "s1" {
		t.Fatalf("student filter not pinned: got %q", f.StudentID)
	}

	admin := Identity{UserID: "a1", Role: model.RoleAdmin}
	f = ScopeLedger(admin, store.LedgerFilter{StudentID: "s2"})
	if f.StudentID != "s2" {
		t.Fatalf("admin filter overridden: got %q", f.StudentID)
	}
}

func TestReportTarget(t *testing.T) {
	student := Identity{UserID: "s1", Role: model.RoleStudent}
	target, err := ReportTarget(student, "s2")
	if err != nil || target != "s1" {
		t.Fatalf("student target = %q, %v; want s1", target, err)
	}

	faculty := Identity{UserID: "f1", Role: model.RoleFaculty}
	target, err = ReportTarget(faculty, "s2")
	if err != nil || target != "s2" {
		t.Fatalf("faculty target = %q, %v; want s2", target, err)
	}
	target, err = ReportTarget(faculty, "")
	if err != nil || target != "f1" {
		t.Fatalf("faculty default target = %q, %v; want f1", target, err)
	}
}

func TestScopeUsers(t *testing.T) {
	incharge := Identity{UserID: "i1", Role: model.RoleIncharge, Department: "CSE"}
	f, err := ScopeUsers(incharge, store.UserFilter{Role: model.RoleFaculty, Department: "ECE"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Role != model.RoleStudent || f.Department != "CSE" {
		t.Fatalf("incharge scope not narrowed: %+v", f)
	}

	student := Identity{UserID: "s1", Role: model.RoleStudent}
	if _, err := ScopeUsers(student, store.UserFilter{}); err == nil {
		t.Fatal("student user listing should be forbidden")
	}
}

func TestCanCreateRole(t *testing.T) {
	admin := Identity{Role: model.RoleAdmin}
	incharge := Identity{Role: model.RoleIncharge}
	faculty := Identity{Role: model.RoleFaculty}

	if err := CanCreateRole(admin, model.RoleIncharge); err != nil {
		t.Fatalf("admin should create any role: %v", err)
	}
	if err := CanCreateRole(incharge, model.RoleStudent); err != nil {
		t.Fatalf("incharge should create students: %v", err)
	}
	if err := CanCreateRole(incharge, model.RoleFaculty); err == nil {
		t.Fatal("incharge must not create faculty")
	}
	if err := CanCreateRole(faculty, model.RoleStudent); err == nil {
		t.Fatal("faculty must not create accounts")
	}
}

func TestNarrowToSlots(t *testing.T) {
	slots := []model.SchedulePeriod{
		{DayOfWeek: 1, PeriodID: 1},
		{DayOfWeek: 3, PeriodID: 2},
	}
	allowed := SlotKeysOf(slots)

	records := []model.AttendanceRecord{
		{StudentID: "s1", Date: "2026-03-02", PeriodID: 1}, // Monday, assigned
		{StudentID: "s2", Date: "2026-03-02", PeriodID: 2}, // Monday, wrong period
		{StudentID: "s3", Date: "2026-03-03", PeriodID: 1}, // Tuesday, wrong day
		{StudentID: "s4", Date: "2026-03-04", PeriodID: 2}, // Wednesday, assigned
		{StudentID: "s5", Date: "not-a-date", PeriodID: 1},
	}
	got := NarrowToSlots(records, allowed)
	if len(got) != 2 || got[0].StudentID != "s1" || got[1].StudentID != "s4" {
		t.Fatalf("narrowed = %+v, want s1 and s4 only", got)
	}

	if got := NarrowToSlots(records, SlotKeysOf(nil)); len(got) != 0 {
		t.Fatalf("no assigned periods must narrow to nothing, got %+v", got)
	}
}

func TestScopeLeaves(t *testing.T) {
	incharge := Identity{UserID: "i1", Role: model.RoleIncharge, Department: "CSE"}
	f := ScopeLeaves(incharge, nil)
	if f.StudentIDs == nil {
		t.Fatal("incharge with empty roster must get a non-nil id list so the scope matches nothing")
	}

	faculty := Identity{UserID: "f1", Role: model.RoleFaculty}
	if got := ScopeLeaves(faculty, nil); got.FacultyID != "f1" {
		t.Fatalf("faculty leave scope = %+v", got)
	}
}
