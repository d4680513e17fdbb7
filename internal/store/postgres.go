package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"campustrack/internal/apperr"
)

// Postgres is the relational Store backed by pgx through database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a Postgres connection with sane pool defaults and
// bootstraps the schema.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'student',
			uid TEXT UNIQUE,
			id_number TEXT,
			department TEXT,
			class_name TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS timetable (
			id TEXT PRIMARY KEY,
			day_of_week INT NOT NULL,
			period_id INT NOT NULL,
			subject TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			faculty_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			faculty_name TEXT,
			faculty_email TEXT,
			department TEXT,
			class_name TEXT,
			location TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT timetable_slot_unique UNIQUE (day_of_week, period_id)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			period_id INT NOT NULL,
			status TEXT NOT NULL,
			marked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			source TEXT NOT NULL DEFAULT 'web',
			CONSTRAINT attendance_mark_unique UNIQUE (student_id, date, period_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
		`CREATE TABLE IF NOT EXISTS permissions (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			faculty_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reason TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS activation_codes (
			code TEXT PRIMARY KEY,
			is_used BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Users() UserStore               { return &pgUsers{db: p.db} }
func (p *Postgres) Schedule() ScheduleStore        { return &pgSchedule{db: p.db} }
func (p *Postgres) Ledger() LedgerStore            { return &pgLedger{db: p.db} }
func (p *Postgres) Leaves() LeaveStore             { return &pgLeaves{db: p.db} }
func (p *Postgres) Complaints() ComplaintStore     { return &pgComplaints{db: p.db} }
func (p *Postgres) Codes() CodeStore               { return &pgCodes{db: p.db} }
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// translatePG maps driver errors to the taxonomy: unique violations become
// Conflict, missing relations become Unavailable (mid-migration tolerance).
func translatePG(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Wrap(apperr.KindConflict, err, msg+" already exists")
		case "42P01":
			return apperr.Wrap(apperr.KindUnavailable, err, msg+" store not provisioned")
		}
	}
	return err
}
