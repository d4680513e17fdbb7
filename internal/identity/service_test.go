package identity

import (
	"context"
	"testing"
	"time"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/config"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

func testConfig() config.App {
	return config.App{
		JWTIssuer:       "campustrack",
		JWTSigningKey:   "test-secret",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		EmailDomain:     "vishnu.edu.in",
		AdminInviteCode: "invite-123",
		DefaultPassword: "Welcome#4",
	}
}

func newFixture(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	return NewService(st, testConfig()), st
}

func TestSignupDetectsRoles(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{
		Name: "Asha", Email: "24pa1a0001@vishnu.edu.in", Password: "longenough",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleStudent || !u.IsActive {
		t.Fatalf("student signup = %+v", u)
	}

	// Faculty need an activation code.
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Jane", Email: "jane@vishnu.edu.in", Password: "longenough",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("faculty without code: want invalid, got %v", err)
	}

	if err := st.Codes().Create(ctx, "FAC-1"); err != nil {
		t.Fatal(err)
	}
	u, err = svc.Signup(ctx, SignupInput{
		Name: "Jane", Email: "jane@vishnu.edu.in", Password: "longenough", ActivationCode: "FAC-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleFaculty {
		t.Fatalf("faculty role = %q", u.Role)
	}

	// The code is one-shot.
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "John", Email: "john@vishnu.edu.in", Password: "longenough", ActivationCode: "FAC-1",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("reused code: want invalid, got %v", err)
	}
}

func TestSignupRejections(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Out", Email: "someone@gmail.com", Password: "longenough",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("foreign domain: want invalid, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Short", Email: "24pa1a0002@vishnu.edu.in", Password: "short",
	}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("short password: want invalid, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Head", Email: "cse.incharge@vishnu.edu.in", Password: "longenough", InviteCode: "wrong",
	}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("bad invite: want forbidden, got %v", err)
	}

	// Duplicate email surfaces as conflict.
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Asha", Email: "24pa1a0003@vishnu.edu.in", Password: "longenough",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Signup(ctx, SignupInput{
		Name: "Asha Again", Email: "24pa1a0003@vishnu.edu.in", Password: "longenough",
	}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("dup email: want conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{
		Name: "Asha", Email: "24pa1a0001@vishnu.edu.in", Password: "longenough",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, pair, err := svc.Login(ctx, "24pa1a0001@vishnu.edu.in", "longenough")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID || pair.AccessToken == "" {
		t.Fatalf("login = %+v / %+v", got, pair)
	}

	if _, _, err := svc.Login(ctx, "24pa1a0001@vishnu.edu.in", "wrong"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("bad password: want invalid, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@vishnu.edu.in", "whatever"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("unknown email: want invalid, got %v", err)
	}

	// Deactivated accounts cannot log in.
	u.IsActive = false
	if err := st.Users().Update(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(ctx, "24pa1a0001@vishnu.edu.in", "longenough"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("inactive login: want invalid, got %v", err)
	}
}

func TestStaffCreateDefaults(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	incharge := access.Identity{UserID: "i1", Role: model.RoleIncharge, Department: "CSE", ClassName: "A"}

	u, err := svc.Create(ctx, incharge, CreateInput{
		Name: "New Student", Email: "24pa1a0100@vishnu.edu.in", Role: model.RoleStudent,
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Department != "CSE" || u.ClassName != "A" {
		t.Fatalf("department/class not inherited: %+v", u)
	}
	if !u.MustChangePassword {
		t.Fatal("provisioned account should require a password change")
	}

	if _, err := svc.Create(ctx, incharge, CreateInput{
		Name: "New Faculty", Email: "new@vishnu.edu.in", Role: model.RoleFaculty,
	}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("incharge creating faculty: want forbidden, got %v", err)
	}
}

func TestChangePasswordClearsFlag(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	admin := access.Identity{UserID: "a1", Role: model.RoleAdmin}

	u, err := svc.Create(ctx, admin, CreateInput{
		Name: "New Student", Email: "24pa1a0100@vishnu.edu.in", Role: model.RoleStudent,
	})
	if err != nil {
		t.Fatal(err)
	}

	self := access.Identity{UserID: u.ID, Role: model.RoleStudent}
	if err := svc.ChangePassword(ctx, self, u.ID, "Welcome#4", "brand-new-pass"); err != nil {
		t.Fatal(err)
	}
	updated, err := st.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.MustChangePassword {
		t.Fatal("must_change_password not cleared")
	}

	if err := svc.ChangePassword(ctx, self, u.ID, "wrong-current", "another-pass"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("wrong current password: want invalid, got %v", err)
	}
}

func TestPromoteDemote(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	admin := access.Identity{UserID: "a1", Role: model.RoleAdmin}

	if err := st.Users().Create(ctx, &model.User{
		ID: "f1", Name: "Jane", Email: "jane@vishnu.edu.in", Role: model.RoleFaculty, IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Promote(ctx, admin, "f1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleIncharge {
		t.Fatalf("promoted role = %q", u.Role)
	}
	// Promoting twice fails the precondition.
	if _, err := svc.Promote(ctx, admin, "f1"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("double promote: want invalid, got %v", err)
	}
	u, err = svc.Demote(ctx, admin, "f1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleFaculty {
		t.Fatalf("demoted role = %q", u.Role)
	}
}

func TestMapUID(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	admin := access.Identity{UserID: "a1", Role: model.RoleAdmin}

	for _, u := range []model.User{
		{ID: "s1", Name: "Asha", Email: "24pa1a0001@vishnu.edu.in", Role: model.RoleStudent, IsActive: true},
		{ID: "s2", Name: "Ravi", Email: "24pa1a0002@vishnu.edu.in", Role: model.RoleStudent, IsActive: true},
		{ID: "f1", Name: "Jane", Email: "jane@vishnu.edu.in", Role: model.RoleFaculty, IsActive: true},
	} {
		u := u
		if err := st.Users().Create(ctx, &u); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.MapUID(ctx, admin, "s1", "TAG001"); err != nil {
		t.Fatal(err)
	}
	// The same tag cannot bind to a second student.
	if _, err := svc.MapUID(ctx, admin, "s2", "TAG001"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("dup tag: want conflict, got %v", err)
	}
	// Tags are for students only.
	if _, err := svc.MapUID(ctx, admin, "f1", "TAG002"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("faculty tag: want invalid, got %v", err)
	}
}
