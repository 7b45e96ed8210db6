package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnrollmentRepository handles enrollment data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Snapshot reads the enrollment state a candidate is evaluated against, without locking.
// Returns pgx.ErrNoRows when roomID names a room that does not exist.
func (r *EnrollmentRepository) Snapshot(ctx context.Context, subjectID, studentID int, roomID *int) (*model.ConflictSnapshot, error) {
	return readSnapshot(ctx, r.pool, subjectID, studentID, roomID, false)
}

func readSnapshot(ctx context.Context, q queryRower, subjectID, studentID int, roomID *int, lockRoom bool) (*model.ConflictSnapshot, error) {
	snap := &model.ConflictSnapshot{}

	if roomID != nil {
		roomQuery := `SELECT id, number, building, capacity, created_at, updated_at FROM rooms WHERE id = $1`
		if lockRoom {
			roomQuery += ` FOR UPDATE`
		}
		room := &model.Room{}
		if err := q.QueryRow(ctx, roomQuery, *roomID).Scan(
			&room.ID, &room.Number, &room.Building, &room.Capacity, &room.CreatedAt, &room.UpdatedAt,
		); err != nil {
			return nil, err
		}
		snap.Room = room

		if err := q.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(array_agg(DISTINCT subject_id), '{}'::int[])
			 FROM enrollments WHERE room_id = $1`, *roomID,
		).Scan(&snap.RoomEnrollmentCount, &snap.RoomSubjectIDs); err != nil {
			return nil, fmt.Errorf("room occupancy: %w", err)
		}
	}

	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE subject_id = $1 AND student_id = $2)`,
		subjectID, studentID,
	).Scan(&snap.AlreadyEnrolled); err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	return snap, nil
}

// CreateChecked inserts e inside one transaction: the room row is locked, the snapshot
// re-read and passed to check, and the insert happens only when check reports nothing.
// Constraint and trigger rejections from the database are translated into conflicts too.
func (r *EnrollmentRepository) CreateChecked(
	ctx context.Context,
	e *model.Enrollment,
	check func(*model.ConflictSnapshot) []model.Conflict,
) ([]model.Conflict, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	snap, err := readSnapshot(ctx, tx, e.SubjectID, e.StudentID, e.RoomID, true)
	if err != nil {
		return nil, err
	}

	if conflicts := check(snap); len(conflicts) > 0 {
		return conflicts, nil
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO enrollments (id, subject_id, student_id, room_id, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		e.ID, e.SubjectID, e.StudentID, e.RoomID, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		if conflict, ok := constraintConflict(err); ok {
			return []model.Conflict{conflict}, nil
		}
		return nil, translateWriteErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return nil, nil
}

// constraintConflict maps the storage-level guards onto conflict codes.
// The trigger raises check_violation with the conflict code as its message.
func constraintConflict(err error) (model.Conflict, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return model.Conflict{}, false
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if strings.Contains(pgErr.ConstraintName, "subject_student") {
			return model.NewConflict(model.ConflictDuplicateEnrollment), true
		}
	case pgCheckViolation:
		switch model.ConflictCode(pgErr.Message) {
		case model.ConflictRoomCapacity, model.ConflictRoomSubjectMismatch:
			return model.NewConflict(model.ConflictCode(pgErr.Message)), true
		}
	}
	return model.Conflict{}, false
}

const enrollmentDetailSelect = `
	SELECT e.id, e.subject_id, e.student_id, e.room_id, e.created_by, e.created_at,
	       sub.name, sub.code, st.name, st.student_number, rm.number
	FROM enrollments e
	JOIN subjects sub ON sub.id = e.subject_id
	JOIN students st ON st.id = e.student_id
	LEFT JOIN rooms rm ON rm.id = e.room_id`

func scanEnrollmentDetail(row pgx.Row, d *model.EnrollmentDetail) error {
	return row.Scan(&d.ID, &d.SubjectID, &d.StudentID, &d.RoomID, &d.CreatedBy, &d.CreatedAt,
		&d.SubjectName, &d.SubjectCode, &d.StudentName, &d.StudentNumber, &d.RoomNumber)
}

// GetByID retrieves an enrollment with its display fields. Returns pgx.ErrNoRows when absent.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	d := &model.EnrollmentDetail{}
	if err := scanEnrollmentDetail(r.pool.QueryRow(ctx, enrollmentDetailSelect+` WHERE e.id = $1`, id), d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns enrollments matching the filter, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	var (
		conds []string
		args  []any
	)
	if f.SubjectID != nil {
		args = append(args, *f.SubjectID)
		conds = append(conds, fmt.Sprintf("e.subject_id = $%d", len(args)))
	}
	if f.StudentID != nil {
		args = append(args, *f.StudentID)
		conds = append(conds, fmt.Sprintf("e.student_id = $%d", len(args)))
	}
	if f.RoomID != nil {
		args = append(args, *f.RoomID)
		conds = append(conds, fmt.Sprintf("e.room_id = $%d", len(args)))
	}

	query := enrollmentDetailSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.EnrollmentDetail
	for rows.Next() {
		var d model.EnrollmentDetail
		if err := scanEnrollmentDetail(rows, &d); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// Delete removes an enrollment. Returns false when nothing was deleted.
func (r *EnrollmentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
