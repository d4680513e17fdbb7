// Package identity covers signup, login and account management. Role
// assignment at signup is derived from the institutional email pattern, with
// one-shot activation codes gating staff self-registration.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Service implements account lifecycle operations.
type Service struct {
	store store.Store
	cfg   config.App
	now   func() time.Time
}

func NewService(st store.Store, cfg config.App) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

// SignupInput is a self-registration request.
type SignupInput struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	Department     string `json:"department"`
	ClassName      string `json:"class_name"`
	IDNumber       string `json:"id_number"`
	ActivationCode string `json:"activation_code"`
	InviteCode     string `json:"invite_code"`
}

// Signup registers a new account. The role is detected from the email's
// local part; faculty need an unused activation code, incharge/admin the
// deployment invite code.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.HasSuffix(email, "@"+s.cfg.EmailDomain) {
		return nil, apperr.Invalid("email must belong to %s", s.cfg.EmailDomain)
	}
	role := auth.DetectRole(email)
	if role == "" {
		return nil, apperr.Invalid("email does not match any account pattern")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Invalid("password must be at least 8 characters")
	}

	switch role {
	case model.RoleFaculty:
		if in.ActivationCode == "" {
			return nil, apperr.Invalid("activation code required for faculty signup")
		}
		if err := s.store.Codes().Claim(ctx, in.ActivationCode); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Invalid("invalid or already used activation code")
			}
			return nil, err
		}
	case model.RoleIncharge, model.RoleAdmin:
		if s.cfg.AdminInviteCode == "" || in.InviteCode != s.cfg.AdminInviteCode {
			return nil, apperr.Forbidden("invalid invite code")
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IDNumber:     strings.TrimSpace(in.IDNumber),
		Department:   strings.TrimSpace(in.Department),
		ClassName:    strings.TrimSpace(in.ClassName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a token pair. Deactivated accounts
// are rejected with the same message as a bad password.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, auth.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, auth.TokenPair{}, apperr.Invalid("invalid credentials")
		}
		return nil, auth.TokenPair{}, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, auth.TokenPair{}, apperr.Invalid("invalid credentials")
	}
	pair, err := auth.Issue(u, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh re-issues tokens for a still-active account.
func (s *Service) Refresh(ctx context.Context, caller access.Identity) (auth.TokenPair, error) {
	u, err := s.store.Users().GetByID(ctx, caller.UserID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if !u.IsActive {
		return auth.TokenPair{}, apperr.Forbidden("account is deactivated")
	}
	return auth.Issue(u, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
}

// Me returns the caller's own account record.
func (s *Service) Me(ctx context.Context, caller access.Identity) (*model.User, error) {
	return s.store.Users().GetByID(ctx, caller.UserID)
}

// List returns accounts visible to the caller after scope narrowing.
func (s *Service) List(ctx context.Context, caller access.Identity, f store.UserFilter) ([]model.User, error) {
	scoped, err := access.ScopeUsers(caller, f)
	if err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, scoped)
}

// CreateInput is a staff-initiated account creation.
type CreateInput struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email" binding:"required"`
	Role       model.Role `json:"role" binding:"required"`
	IDNumber   string     `json:"id_number"`
	Department string     `json:"department"`
	ClassName  string     `json:"class_name"`
	UID        string     `json:"uid"`
}

// Create provisions an account with the deployment default password. The
// first login forces a password change. Incharges creating students inherit
// their own department/class when none is supplied.
func (s *Service) Create(ctx context.Context, caller access.Identity, in CreateInput) (*model.User, error) {
	if !model.ValidRole(in.Role) {
		return nil, apperr.Invalid("unknown role %q", in.Role)
	}
	if err := access.CanCreateRole(caller, in.Role); err != nil {
		return nil, err
	}
	if caller.Role == model.RoleIncharge {
		if in.Department == "" {
			in.Department = caller.Department
		}
		if in.ClassName == "" {
			in.ClassName = caller.ClassName
		}
	}
	hash, err := auth.HashPassword(s.cfg.DefaultPassword)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &model.User{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(in.Name),
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:       hash,
		Role:               in.Role,
		UID:                strings.TrimSpace(in.UID),
		IDNumber:           strings.TrimSpace(in.IDNumber),
		Department:         strings.TrimSpace(in.Department),
		ClassName:          strings.TrimSpace(in.ClassName),
		IsActive:           true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateInput carries mutable profile fields. Nil pointers leave the field
// untouched.
type UpdateInput struct {
	Name       *string `json:"name"`
	IDNumber   *string `json:"id_number"`
	Department *string `json:"department"`
	ClassName  *string `json:"class_name"`
}

// Update edits a profile. Admins may edit anyone; others only themselves.
func (s *Service) Update(ctx context.Context, caller access.Identity, id string, in UpdateInput) (*model.User, error) {
	if caller.Role != model.RoleAdmin && caller.UserID != id {
		return nil, apperr.Forbidden("forbidden")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.IDNumber != nil {
		u.IDNumber = strings.TrimSpace(*in.IDNumber)
	}
	if in.Department != nil {
		u.Department = strings.TrimSpace(*in.Department)
	}
	if in.ClassName != nil {
		u.ClassName = strings.TrimSpace(*in.ClassName)
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes an account. Self-deletion is refused so an admin cannot
// lock the deployment out.
func (s *Service) Delete(ctx context.Context, caller access.Identity, id string) error {
	if err := access.RequireRoles(caller, model.RoleAdmin); err != nil {
		return err
	}
	if caller.UserID == id {
		return apperr.Invalid("cannot delete your own account")
	}
	return s.store.Users().Delete(ctx, id)
}

// ToggleStatus flips an account between active and deactivated.
func (s *Service) ToggleStatus(ctx context.Context, caller access.Identity, id string) (*model.User, error) {
	if err := access.RequireRoles(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if caller.UserID == id {
		return nil, apperr.Invalid("cannot deactivate your own account")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Promote raises a faculty member to incharge.
func (s *Service) Promote(ctx context.Context, caller access.Identity, id string) (*model.User, error) {
	return s.setRole(ctx, caller, id, model.RoleFaculty, model.RoleIncharge)
}

// Demote returns an incharge to faculty.
func (s *Service) Demote(ctx context.Context, caller access.Identity, id string) (*model.User, error) {
	return s.setRole(ctx, caller, id, model.RoleIncharge, model.RoleFaculty)
}

func (s *Service) setRole(ctx context.Context, caller access.Identity, id string, from, to model.Role) (*model.User, error) {
	if err := access.RequireRoles(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != from {
		return nil, apperr.Invalid("user is %s, expected %s", u.Role, from)
	}
	u.Role = to
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword sets a new password for the caller, or for any account
// when the caller is admin. A successful change clears the forced-change
// flag set at provisioning.
func (s *Service) ChangePassword(ctx context.Context, caller access.Identity, id, current, next string) error {
	self := caller.UserID == id
	if !self && caller.Role != model.RoleAdmin {
		return apperr.Forbidden("forbidden")
	}
	if len(next) < 8 {
		return apperr.Invalid("password must be at least 8 characters")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if self && !auth.CheckPassword(u.PasswordHash, current) {
		return apperr.Invalid("current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.MustChangePassword = false
	u.UpdatedAt = s.now().UTC()
	return s.store.Users().Update(ctx, u)
}

// MapUID binds a hardware tag to a student account. Duplicate tags surface
// as Conflict from the store's unique index.
func (s *Service) MapUID(ctx context.Context, caller access.Identity, id, uid string) (*model.User, error) {
	if err := access.RequireRoles(caller, model.RoleAdmin, model.RoleIncharge); err != nil {
		return nil, err
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperr.Invalid("uid required")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleStudent {
		return nil, apperr.Invalid("hardware tags map to student accounts only")
	}
	u.UID = uid
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateActivationCode registers a one-shot faculty signup code, generating
// one when none is supplied.
func (s *Service) CreateActivationCode(ctx context.Context, caller access.Identity, code string) (string, error) {
	if err := access.RequireRoles(caller, model.RoleAdmin); err != nil {
		return "", err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = uuid.NewString()[:8]
	}
	if err := s.store.Codes().Create(ctx, code); err != nil {
		return "", err
	}
	return code, nil
}
