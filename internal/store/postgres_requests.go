package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

type pgLeaves struct {
	db *sql.DB
}

const leaveColumns = `id, student_id, faculty_id, reason, start_date, end_date, status, created_at, updated_at`

func (r *pgLeaves) Create(ctx context.Context, lr *model.LeaveRequest) error {
	if lr.ID == "" {
		lr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lr.CreatedAt, lr.UpdatedAt = now, now
	if lr.Status == "" {
		lr.Status = model.LeavePending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (id, student_id, faculty_id, reason, start_date, end_date, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, lr.ID, lr.StudentID, lr.FacultyID, lr.Reason, lr.StartDate, lr.EndDate, lr.Status, lr.CreatedAt, lr.UpdatedAt)
	return translatePG(err, "leave request")
}

func (r *pgLeaves) GetByID(ctx context.Context, id string) (*model.LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM permissions WHERE id = $1`, id)
	var lr model.LeaveRequest
	if err := row.Scan(&lr.ID, &lr.StudentID, &lr.FacultyID, &lr.Reason, &lr.StartDate, &lr.EndDate,
		&lr.Status, &lr.CreatedAt, &lr.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("leave request not found")
		}
		return nil, err
	}
	return &lr, nil
}

func (r *pgLeaves) List(ctx context.Context, f LeaveFilter) ([]model.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM permissions`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.StudentID)
	}
	if f.FacultyID != "" {
		clauses = append(clauses, "faculty_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.FacultyID)
	}
	if f.StudentIDs != nil {
		// Empty scope matches nothing, mirroring an incharge with no students.
		if len(f.StudentIDs) == 0 {
			return nil, nil
		}
		placeholders := ""
		for i, id := range f.StudentIDs {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "$" + strconv.Itoa(len(args)+1)
			args = append(args, id)
		}
		clauses = append(clauses, "student_id IN ("+placeholders+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePG(err, "leave request")
	}
	defer rows.Close()
	var res []model.LeaveRequest
	for rows.Next() {
		var lr model.LeaveRequest
		if err := rows.Scan(&lr.ID, &lr.StudentID, &lr.FacultyID, &lr.Reason, &lr.StartDate, &lr.EndDate,
			&lr.Status, &lr.CreatedAt, &lr.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, lr)
	}
	return res, rows.Err()
}

// Decide is a conditional write: only a still-pending request transitions.
func (r *pgLeaves) Decide(ctx context.Context, id, status string) (*model.LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE permissions SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+leaveColumns, id, status)
	var lr model.LeaveRequest
	err := row.Scan(&lr.ID, &lr.StudentID, &lr.FacultyID, &lr.Reason, &lr.StartDate, &lr.EndDate,
		&lr.Status, &lr.CreatedAt, &lr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish unknown id from an already-decided request.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, apperr.Conflict("leave request already decided")
	}
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *pgLeaves) CountPending(ctx context.Context) (int, error) {
	count, err := countScalar(ctx, r.db, `SELECT COUNT(*) FROM permissions WHERE status = 'pending'`)
	return count, translatePG(err, "leave request")
}

type pgComplaints struct {
	db *sql.DB
}

func (r *pgComplaints) Create(ctx context.Context, c *model.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Status == "" {
		c.Status = model.ComplaintPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO complaints (id, student_id, message, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.StudentID, c.Message, c.Status, c.CreatedAt, c.UpdatedAt)
	return translatePG(err, "complaint")
}

func (r *pgComplaints) List(ctx context.Context, f ComplaintFilter) ([]model.Complaint, error) {
	query := `SELECT id, student_id, message, status, created_at, updated_at FROM complaints`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.StudentID)
	}
	if f.StudentIDs != nil {
		if len(f.StudentIDs) == 0 {
			return nil, nil
		}
		placeholders := ""
		for i, id := range f.StudentIDs {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "$" + strconv.Itoa(len(args)+1)
			args = append(args, id)
		}
		clauses = append(clauses, "student_id IN ("+placeholders+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePG(err, "complaint")
	}
	defer rows.Close()
	var res []model.Complaint
	for rows.Next() {
		var c model.Complaint
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *pgComplaints) SetStatus(ctx context.Context, id, status string) (*model.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE complaints SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, student_id, message, status, created_at, updated_at`, id, status)
	var c model.Complaint
	if err := row.Scan(&c.ID, &c.StudentID, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("complaint not found")
		}
		return nil, err
	}
	return &c, nil
}

func (r *pgComplaints) CountPending(ctx context.Context) (int, error) {
	count, err := countScalar(ctx, r.db, `SELECT COUNT(*) FROM complaints WHERE status = 'pending'`)
	return count, translatePG(err, "complaint")
}

type pgCodes struct {
	db *sql.DB
}

func (r *pgCodes) Claim(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE activation_codes SET is_used = TRUE WHERE code = $1 AND NOT is_used`, code)
	if err != nil {
		return translatePG(err, "activation code")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("invalid or used activation code")
	}
	return nil
}

func (r *pgCodes) Create(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO activation_codes (code) VALUES ($1)`, code)
	return translatePG(err, "activation code")
}
