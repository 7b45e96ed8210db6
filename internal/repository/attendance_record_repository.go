package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// AttendanceRecordRepository handles attendance record data access.
type AttendanceRecordRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRecordRepository creates a new AttendanceRecordRepository.
func NewAttendanceRecordRepository(pool *pgxpool.Pool) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{pool: pool}
}

// Insert records a student's attendance. Returns false without error when the
// (session, student) pair already exists; rec is left untouched in that case.
func (r *AttendanceRecordRepository) Insert(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance_records (session_id, student_id, marked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, student_id) DO NOTHING
		 RETURNING marked_at`,
		rec.SessionID, rec.StudentID, rec.MarkedAt,
	).Scan(&rec.MarkedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, translateWriteErr(err)
	}
	return true, nil
}

// GetBySessionAndStudent retrieves a single record. Returns pgx.ErrNoRows when absent.
func (r *AttendanceRecordRepository) GetBySessionAndStudent(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttendanceRecord, error) {
	rec := &model.AttendanceRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, student_id, marked_at
		 FROM attendance_records
		 WHERE session_id = $1 AND student_id = $2`, sessionID, studentID,
	).Scan(&rec.SessionID, &rec.StudentID, &rec.MarkedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAttendee resolves one record to the student's display fields.
func (r *AttendanceRecordRepository) GetAttendee(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.Attendee, error) {
	a := &model.Attendee{}
	err := r.pool.QueryRow(ctx,
		`SELECT st.id, st.student_number, st.name, st.email, ar.marked_at
		 FROM attendance_records ar
		 JOIN students st ON st.id = ar.student_id
		 WHERE ar.session_id = $1 AND ar.student_id = $2`, sessionID, studentID,
	).Scan(&a.StudentID, &a.StudentNumber, &a.StudentName, &a.StudentEmail, &a.MarkedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttendees returns the session roster ordered by marked_at, then student id.
func (r *AttendanceRecordRepository) ListAttendees(ctx context.Context, sessionID uuid.UUID) ([]model.Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT st.id, st.student_number, st.name, st.email, ar.marked_at
		 FROM attendance_records ar
		 JOIN students st ON st.id = ar.student_id
		 WHERE ar.session_id = $1
		 ORDER BY ar.marked_at ASC, st.id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attendees []model.Attendee
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.StudentID, &a.StudentNumber, &a.StudentName, &a.StudentEmail, &a.MarkedAt); err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

// ListByStudent returns a student's attendance history, newest first.
func (r *AttendanceRecordRepository) ListByStudent(ctx context.Context, studentID int) ([]model.StudentAttendance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.course_name, s.location, s.start_time, ar.marked_at
		 FROM attendance_records ar
		 JOIN attendance_sessions s ON s.id = ar.session_id
		 WHERE ar.student_id = $1
		 ORDER BY ar.marked_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.StudentAttendance
	for rows.Next() {
		var h model.StudentAttendance
		if err := rows.Scan(&h.SessionID, &h.CourseName, &h.Location, &h.StartTime, &h.MarkedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
