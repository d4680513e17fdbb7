// Package request handles the two student workflows that route to staff:
// leave/permission requests and complaints.
package request

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/access"
	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

// Service wraps the leave and complaint stores with role scoping.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// deptRoster resolves the incharge's student id list for scoped listings.
// Other roles never need it.
func (s *Service) deptRoster(ctx context.Context, caller access.Identity) ([]string, error) {
	if caller.Role != model.RoleIncharge {
		return nil, nil
	}
	ids, err := s.store.Users().StudentIDsByDepartment(ctx, caller.Department)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// LeaveInput is a student's new leave request.
type LeaveInput struct {
	FacultyID string `json:"faculty_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// CreateLeave files a pending leave request against a faculty approver.
func (s *Service) CreateLeave(ctx context.Context, caller access.Identity, in LeaveInput) (*model.LeaveRequest, error) {
	if err := access.RequireRoles(caller, model.RoleStudent); err != nil {
		return nil, err
	}
	if !validDate(in.StartDate) || !validDate(in.EndDate) {
		return nil, apperr.Invalid("dates must be YYYY-MM-DD")
	}
	if in.EndDate < in.StartDate {
		return nil, apperr.Invalid("end_date must not precede start_date")
	}
	approver, err := s.store.Users().GetByID(ctx, in.FacultyID)
	if err != nil {
		return nil, err
	}
	if approver.Role != model.RoleFaculty && approver.Role != model.RoleIncharge {
		return nil, apperr.Invalid("approver must be a faculty member")
	}
	now := s.now().UTC()
	lr := &model.LeaveRequest{
		ID:        uuid.NewString(),
		StudentID: caller.UserID,
		FacultyID: in.FacultyID,
		Reason:    in.Reason,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    model.LeavePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Leaves().Create(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

// ListLeaves returns leave requests visible to the caller: students their
// own, faculty their approval queue, incharges their department's.
func (s *Service) ListLeaves(ctx context.Context, caller access.Identity) ([]model.LeaveRequest, error) {
	if caller.Role == model.RoleAdmin {
		return s.store.Leaves().List(ctx, store.LeaveFilter{})
	}
	roster, err := s.deptRoster(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.store.Leaves().List(ctx, access.ScopeLeaves(caller, roster))
}

// MyLeaves returns the leave requests the caller filed, regardless of role.
func (s *Service) MyLeaves(ctx context.Context, caller access.Identity) ([]model.LeaveRequest, error) {
	return s.store.Leaves().List(ctx, store.LeaveFilter{StudentID: caller.UserID})
}

// DecideLeave moves a pending request to approved or rejected. Requests
// already decided stay decided; the store reports Conflict.
func (s *Service) DecideLeave(ctx context.Context, caller access.Identity, id, status string) (*model.LeaveRequest, error) {
	if err := access.RequireRoles(caller, model.RoleFaculty, model.RoleIncharge, model.RoleAdmin); err != nil {
		return nil, err
	}
	if status != model.LeaveApproved && status != model.LeaveRejected {
		return nil, apperr.Invalid("status must be approved or rejected")
	}
	if caller.Role == model.RoleFaculty {
		lr, err := s.store.Leaves().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if lr.FacultyID != caller.UserID {
			return nil, apperr.Forbidden("not the assigned approver")
		}
	}
	return s.store.Leaves().Decide(ctx, id, status)
}

// ComplaintInput is a student's new complaint.
type ComplaintInput struct {
	Message string `json:"message" binding:"required"`
}

// CreateComplaint files a pending complaint.
func (s *Service) CreateComplaint(ctx context.Context, caller access.Identity, in ComplaintInput) (*model.Complaint, error) {
	if err := access.RequireRoles(caller, model.RoleStudent); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &model.Complaint{
		ID:        uuid.NewString(),
		StudentID: caller.UserID,
		Message:   in.Message,
		Status:    model.ComplaintPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Complaints().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComplaints returns complaints visible to the caller.
func (s *Service) ListComplaints(ctx context.Context, caller access.Identity) ([]model.Complaint, error) {
	if caller.Role == model.RoleAdmin {
		return s.store.Complaints().List(ctx, store.ComplaintFilter{})
	}
	roster, err := s.deptRoster(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.store.Complaints().List(ctx, access.ScopeComplaints(caller, roster))
}

// MyComplaints returns the complaints the caller filed.
func (s *Service) MyComplaints(ctx context.Context, caller access.Identity) ([]model.Complaint, error) {
	return s.store.Complaints().List(ctx, store.ComplaintFilter{StudentID: caller.UserID})
}

// SetComplaintStatus updates a complaint. Unlike leaves the transition is
// free: resolved complaints can be reopened.
func (s *Service) SetComplaintStatus(ctx context.Context, caller access.Identity, id, status string) (*model.Complaint, error) {
	if err := access.RequireRoles(caller, model.RoleIncharge, model.RoleAdmin); err != nil {
		return nil, err
	}
	switch status {
	case model.ComplaintPending, model.ComplaintResolved, model.ComplaintDismissed:
	default:
		return nil, apperr.Invalid("status must be pending, resolved or dismissed")
	}
	return s.store.Complaints().SetStatus(ctx, id, status)
}
