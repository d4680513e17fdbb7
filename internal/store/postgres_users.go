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

type pgUsers struct {
	db *sql.DB
}

const userColumns = `id, name, email, password_hash, role, COALESCE(uid,''), COALESCE(id_number,''),
	COALESCE(department,''), COALESCE(class_name,''), is_active, must_change_password, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.UID, &u.IDNumber,
		&u.Department, &u.ClassName, &u.IsActive, &u.MustChangePassword, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &u, nil
}

func (r *pgUsers) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, uid, id_number, department, class_name,
			is_active, must_change_password, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),$10,$11,$12,$13)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.UID, u.IDNumber, u.Department, u.ClassName,
		u.IsActive, u.MustChangePassword, u.CreatedAt, u.UpdatedAt)
	return translatePG(err, "user")
}

func (r *pgUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *pgUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *pgUsers) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
}

func (r *pgUsers) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}
	if f.Role != "" {
		clauses = append(clauses, "role = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Role)
	}
	if f.Department != "" {
		clauses = append(clauses, "department = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Department)
	}
	if f.ClassName != "" {
		clauses = append(clauses, "class_name = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.ClassName)
	}
	if f.Search != "" {
		n := strconv.Itoa(len(args) + 1)
		clauses = append(clauses, "(name ILIKE '%' || $"+n+" || '%' OR email ILIKE '%' || $"+n+" || '%')")
		args = append(args, f.Search)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (r *pgUsers) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name=$2, email=$3, password_hash=$4, role=$5, uid=NULLIF($6,''),
			id_number=NULLIF($7,''), department=NULLIF($8,''), class_name=NULLIF($9,''),
			is_active=$10, must_change_password=$11, updated_at=$12
		WHERE id=$1
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.UID, u.IDNumber, u.Department, u.ClassName,
		u.IsActive, u.MustChangePassword, u.UpdatedAt)
	if err != nil {
		return translatePG(err, "user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *pgUsers) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *pgUsers) CountActiveStudents(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'student' AND is_active`).Scan(&count)
	return count, err
}

func (r *pgUsers) StudentIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE role = 'student' AND department = $1`, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
