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

type pgLedger struct {
	db *sql.DB
}

// Upsert is the single atomic conditional write on the uniqueness triple.
// ON CONFLICT makes concurrent marks for the same key resolve to last write
// wins with no duplicate row.
func (r *pgLedger) Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, date, period_id, status, marked_at, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (student_id, date, period_id) DO UPDATE SET
			status = EXCLUDED.status,
			marked_at = EXCLUDED.marked_at,
			source = EXCLUDED.source
		RETURNING id, student_id, date, period_id, status, marked_at, source
	`, rec.ID, rec.StudentID, rec.Date, rec.PeriodID, rec.Status, rec.MarkedAt, rec.Source)
	var out model.AttendanceRecord
	if err := row.Scan(&out.ID, &out.StudentID, &out.Date, &out.PeriodID, &out.Status, &out.MarkedAt, &out.Source); err != nil {
		return model.AttendanceRecord{}, translatePG(err, "attendance")
	}
	return out, nil
}

func (r *pgLedger) List(ctx context.Context, f LedgerFilter) ([]model.AttendanceRecord, error) {
	query := `SELECT id, student_id, date, period_id, status, marked_at, source FROM attendance`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.StudentID)
	}
	if f.Date != "" {
		clauses = append(clauses, "date = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Date)
	}
	if f.PeriodID != nil {
		clauses = append(clauses, "period_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, *f.PeriodID)
	}
	if f.From != "" {
		clauses = append(clauses, "date >= $"+strconv.Itoa(len(args)+1))
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "date <= $"+strconv.Itoa(len(args)+1))
		args = append(args, f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY marked_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePG(err, "attendance")
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.PeriodID, &rec.Status, &rec.MarkedAt, &rec.Source); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r *pgLedger) CountRange(ctx context.Context, studentID, from, to string) (int, int, error) {
	var total, present int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN status = 'P' THEN 1 END)
		FROM attendance
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
	`, studentID, from, to).Scan(&total, &present)
	return total, present, translatePG(err, "attendance")
}

func (r *pgLedger) DayStats(ctx context.Context, date string) (model.DayStat, error) {
	var s model.DayStat
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(CASE WHEN status = 'P' THEN 1 END),
			COUNT(CASE WHEN status = 'A' THEN 1 END)
		FROM attendance WHERE date = $1
	`, date).Scan(&s.Total, &s.Present, &s.Absent)
	return s, translatePG(err, "attendance")
}

type pgSchedule struct {
	db *sql.DB
}

func (r *pgSchedule) Create(ctx context.Context, p *model.SchedulePeriod) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timetable (id, day_of_week, period_id, subject, start_time, end_time,
			faculty_id, faculty_name, faculty_email, department, class_name, location, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''),$13)
	`, p.ID, p.DayOfWeek, p.PeriodID, p.Subject, p.StartTime, p.EndTime,
		p.FacultyID, p.FacultyName, p.FacultyEmail, p.Department, p.ClassName, p.Location, p.CreatedAt)
	return translatePG(err, "timetable slot")
}

func (r *pgSchedule) List(ctx context.Context, f ScheduleFilter) ([]model.SchedulePeriod, error) {
	query := `SELECT id, day_of_week, period_id, subject, start_time, end_time,
		COALESCE(faculty_id,''), COALESCE(faculty_name,''), COALESCE(faculty_email,''),
		COALESCE(department,''), COALESCE(class_name,''), COALESCE(location,''), created_at
		FROM timetable`
	args := []any{}
	clauses := []string{}
	if f.Day >= 0 {
		clauses = append(clauses, "day_of_week = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Day)
	}
	if f.Department != "" {
		clauses = append(clauses, "department = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Department)
	}
	if f.ClassName != "" {
		clauses = append(clauses, "class_name = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.ClassName)
	}
	if f.FacultyEmail != "" {
		clauses = append(clauses, "faculty_email = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.FacultyEmail)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY day_of_week, start_time, period_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePG(err, "timetable")
	}
	defer rows.Close()
	var res []model.SchedulePeriod
	for rows.Next() {
		var p model.SchedulePeriod
		if err := rows.Scan(&p.ID, &p.DayOfWeek, &p.PeriodID, &p.Subject, &p.StartTime, &p.EndTime,
			&p.FacultyID, &p.FacultyName, &p.FacultyEmail, &p.Department, &p.ClassName, &p.Location, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *pgSchedule) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("timetable entry not found")
	}
	return nil
}

// countScalar runs a single COUNT query, treating sql.ErrNoRows as zero.
func countScalar(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
