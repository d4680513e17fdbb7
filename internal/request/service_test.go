package request

import (
	"context"
	"testing"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

func newFixture(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	users := []model.User{
		{ID: "s1", Name: "Asha", Email: "24pa1a0001@vishnu.edu.in", Role: model.RoleStudent, Department: "CSE", IsActive: true},
		{ID: "s2", Name: "Ravi", Email: "24pa1a0002@vishnu.edu.in", Role: model.RoleStudent, Department: "ECE", IsActive: true},
		{ID: "f1", Name: "Jane", Email: "jane@vishnu.edu.in", Role: model.RoleFaculty, IsActive: true},
		{ID: "f2", Name: "John", Email: "john@vishnu.edu.in", Role: model.RoleFaculty, IsActive: true},
		{ID: "i1", Name: "Head", Email: "cse.incharge@vishnu.edu.in", Role: model.RoleIncharge, Department: "CSE", IsActive: true},
	}
	for i := range users {
		if err := st.Users().Create(ctx, &users[i]); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(st), st
}

func ident(id string, role model.Role, dept string) access.Identity {
	return access.Identity{UserID: id, Role: role, Department: dept}
}

func TestLeaveLifecycle(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	student := ident("s1", model.RoleStudent, "CSE")

	lr, err := svc.CreateLeave(ctx, student, LeaveInput{
		FacultyID: "f1", Reason: "family function", StartDate: "2026-03-05", EndDate: "2026-03-06",
	})
	if err != nil {
		t.Fatal(err)
	}
	if lr.Status != model.LeavePending {
		t.Fatalf("new leave status = %q", lr.Status)
	}

	// The assigned approver decides once.
	approver := ident("f1", model.RoleFaculty, "")
	decided, err := svc.DecideLeave(ctx, approver, lr.ID, model.LeaveApproved)
	if err != nil {
		t.Fatal(err)
	}
	if decided.Status != model.LeaveApproved {
		t.Fatalf("decided status = %q", decided.Status)
	}

	// A second decision hits the terminal-state rule.
	if _, err := svc.DecideLeave(ctx, approver, lr.ID, model.LeaveRejected); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("re-decide: want conflict, got %v", err)
	}
}

func TestDecideLeaveGuards(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	student := ident("s1", model.RoleStudent, "CSE")

	lr, err := svc.CreateLeave(ctx, student, LeaveInput{
		FacultyID: "f1", Reason: "sick", StartDate: "2026-03-05", EndDate: "2026-03-05",
	})
	if err != nil {
		t.Fatal(err)
	}

	other := ident("f2", model.RoleFaculty, "")
	if _, err := svc.DecideLeave(ctx, other, lr.ID, model.LeaveApproved); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("unassigned faculty: want forbidden, got %v", err)
	}
	if _, err := svc.DecideLeave(ctx, student, lr.ID, model.LeaveApproved); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("student decide: want forbidden, got %v", err)
	}
	approver := ident("f1", model.RoleFaculty, "")
	if _, err := svc.DecideLeave(ctx, approver, lr.ID, "maybe"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("bad status: want invalid, got %v", err)
	}
	if _, err := svc.DecideLeave(ctx, approver, "ghost", model.LeaveApproved); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown id: want not found, got %v", err)
	}
}

func TestCreateLeaveValidation(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	student := ident("s1", model.RoleStudent, "CSE")

	if _, err := svc.CreateLeave(ctx, student, LeaveInput{
		FacultyID: "f1", Reason: "x", StartDate: "2026-03-06", EndDate: "2026-03-05",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("reversed dates: want invalid, got %v", err)
	}
	if _, err := svc.CreateLeave(ctx, student, LeaveInput{
		FacultyID: "s2", Reason: "x", StartDate: "2026-03-05", EndDate: "2026-03-05",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("student approver: want invalid, got %v", err)
	}
}

func TestListLeavesScoping(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	s1 := ident("s1", model.RoleStudent, "CSE")
	s2 := ident("s2", model.RoleStudent, "ECE")
	if _, err := svc.CreateLeave(ctx, s1, LeaveInput{FacultyID: "f1", Reason: "a", StartDate: "2026-03-05", EndDate: "2026-03-05"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateLeave(ctx, s2, LeaveInput{FacultyID: "f2", Reason: "b", StartDate: "2026-03-05", EndDate: "2026-03-05"}); err != nil {
		t.Fatal(err)
	}

	// The CSE incharge sees only the CSE student's request.
	incharge := ident("i1", model.RoleIncharge, "CSE")
	leaves, err := svc.ListLeaves(ctx, incharge)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) != 1 || leaves[0].StudentID != "s1" {
		t.Fatalf("incharge sees %+v", leaves)
	}

	// Faculty see their own approval queue.
	f2 := ident("f2", model.RoleFaculty, "")
	leaves, err = svc.ListLeaves(ctx, f2)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) != 1 || leaves[0].StudentID != "s2" {
		t.Fatalf("faculty sees %+v", leaves)
	}

	// Admins see everything.
	admin := ident("a1", model.RoleAdmin, "")
	leaves, err = svc.ListLeaves(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) != 2 {
		t.Fatalf("admin sees %d leaves, want 2", len(leaves))
	}
}

func TestComplaintWorkflow(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	student := ident("s1", model.RoleStudent, "CSE")

	cm, err := svc.CreateComplaint(ctx, student, ComplaintInput{Message: "projector broken"})
	if err != nil {
		t.Fatal(err)
	}
	if cm.Status != model.ComplaintPending {
		t.Fatalf("new complaint status = %q", cm.Status)
	}

	incharge := ident("i1", model.RoleIncharge, "CSE")
	resolved, err := svc.SetComplaintStatus(ctx, incharge, cm.ID, model.ComplaintResolved)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != model.ComplaintResolved {
		t.Fatalf("status = %q", resolved.Status)
	}

	// Unlike leaves, complaints can be reopened.
	reopened, err := svc.SetComplaintStatus(ctx, incharge, cm.ID, model.ComplaintPending)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Status != model.ComplaintPending {
		t.Fatalf("status = %q", reopened.Status)
	}

	faculty := ident("f1", model.RoleFaculty, "")
	if _, err := svc.SetComplaintStatus(ctx, faculty, cm.ID, model.ComplaintResolved); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("faculty set status: want forbidden, got %v", err)
	}
}
