package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

const studentColumns = `id, student_number, name, email, password_hash, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.StudentNumber, &s.Name, &s.Email, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByStudentNumber retrieves a student by their unique student number.
func (r *StudentRepository) GetByStudentNumber(ctx context.Context, number string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_number = $1`, number,
	).Scan(&s.ID, &s.StudentNumber, &s.Name, &s.Email, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListPaginated retrieves students with pagination and an optional name/number search.
func (r *StudentRepository) ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.Student, int, error) {
	where := ""
	var args []any
	if search != "" {
		args = append(args, "%"+search+"%")
		where = ` WHERE name ILIKE $1 OR student_number ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+studentColumns+` FROM students%s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.StudentNumber, &s.Name, &s.Email, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student. Returns ErrDuplicate on a taken number or email.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (student_number, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		s.StudentNumber, s.Name, s.Email, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return translateWriteErr(err)
}

// Update modifies a student's basic info (excluding password).
// Returns false when no student has the given ID.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET student_number = $1, name = $2, email = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		s.StudentNumber, s.Name, s.Email, s.ID,
	)
	if err != nil {
		return false, translateWriteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePassword updates a student's password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

// Delete removes a student by ID. Returns false when no student has the given ID.
func (r *StudentRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, translateDeleteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
