package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

const sessionColumns = `id, teacher_id, course_name, location, pin, start_time, end_time, ended_manually, created_at`

// AttendanceSessionRepository handles attendance session data access.
type AttendanceSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceSessionRepository creates a new AttendanceSessionRepository.
func NewAttendanceSessionRepository(pool *pgxpool.Pool) *AttendanceSessionRepository {
	return &AttendanceSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.AttendanceSession, error) {
	s := &model.AttendanceSession{}
	err := row.Scan(&s.ID, &s.TeacherID, &s.CourseName, &s.Location, &s.Pin,
		&s.StartTime, &s.EndTime, &s.EndedManually, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]model.AttendanceSession, error) {
	defer rows.Close()

	var sessions []model.AttendanceSession
	for rows.Next() {
		var s model.AttendanceSession
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.CourseName, &s.Location, &s.Pin,
			&s.StartTime, &s.EndTime, &s.EndedManually, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create inserts a new session. The caller assigns the ID.
func (r *AttendanceSessionRepository) Create(ctx context.Context, s *model.AttendanceSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance_sessions (id, teacher_id, course_name, location, pin, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		s.ID, s.TeacherID, s.CourseName, s.Location, s.Pin, s.StartTime, s.EndTime,
	).Scan(&s.CreatedAt)
	return translateWriteErr(err)
}

// GetByID retrieves a session by ID. Returns pgx.ErrNoRows when absent.
func (r *AttendanceSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AttendanceSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1`, id))
}

// GetActiveByTeacher returns the teacher's most recent session still open at now.
func (r *AttendanceSessionRepository) GetActiveByTeacher(ctx context.Context, teacherID int, now time.Time) (*model.AttendanceSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM attendance_sessions
		 WHERE teacher_id = $1 AND end_time > $2
		 ORDER BY start_time DESC
		 LIMIT 1`, teacherID, now))
}

// FindActiveByPin returns the session currently holding pin, if it is still open at now.
func (r *AttendanceSessionRepository) FindActiveByPin(ctx context.Context, pin string, now time.Time) (*model.AttendanceSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM attendance_sessions
		 WHERE pin = $1 AND end_time > $2
		 ORDER BY start_time DESC
		 LIMIT 1`, pin, now))
}

// ActivePinExists reports whether any session open at now holds pin.
func (r *AttendanceSessionRepository) ActivePinExists(ctx context.Context, pin string, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance_sessions WHERE pin = $1 AND end_time > $2)`,
		pin, now,
	).Scan(&exists)
	return exists, err
}

// UpdatePin replaces the PIN of a session that is still open at now.
// Returns false when the session was already closed.
func (r *AttendanceSessionRepository) UpdatePin(ctx context.Context, id uuid.UUID, pin string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attendance_sessions SET pin = $2 WHERE id = $1 AND end_time > $3`,
		id, pin, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// EndNow closes a session that is still open at now.
// Returns false when it was already closed, leaving the row untouched.
func (r *AttendanceSessionRepository) EndNow(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attendance_sessions SET end_time = $2, ended_manually = TRUE
		 WHERE id = $1 AND end_time > $2`,
		id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByTeacher returns the teacher's sessions, newest first, with attendee counts.
// from and to bound start_time; both are optional and inclusive.
func (r *AttendanceSessionRepository) ListByTeacher(ctx context.Context, teacherID int, from, to *time.Time) ([]model.SessionHistoryEntry, error) {
	query := `
		SELECT s.id, s.teacher_id, s.course_name, s.location, s.pin, s.start_time, s.end_time,
		       s.ended_manually, s.created_at, COUNT(ar.student_id)
		FROM attendance_sessions s
		LEFT JOIN attendance_records ar ON ar.session_id = s.id
		WHERE s.teacher_id = $1`
	args := []any{teacherID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND s.start_time >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND s.start_time < $%d", len(args))
	}
	query += ` GROUP BY s.id ORDER BY s.start_time DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.SessionHistoryEntry
	for rows.Next() {
		var e model.SessionHistoryEntry
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.CourseName, &e.Location, &e.Pin,
			&e.StartTime, &e.EndTime, &e.EndedManually, &e.CreatedAt, &e.AttendeeCount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListExpiredBetween returns sessions that ran out on their own with end_time in (from, to].
func (r *AttendanceSessionRepository) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]model.AttendanceSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM attendance_sessions
		 WHERE ended_manually = FALSE AND end_time > $1 AND end_time <= $2
		 ORDER BY end_time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}
