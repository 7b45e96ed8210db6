package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// TeacherRepository handles staff account data access.
type TeacherRepository struct {
	pool *pgxpool.Pool
}

// NewTeacherRepository creates a new TeacherRepository.
func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

// GetByEmail retrieves a teacher by email.
func (r *TeacherRepository) GetByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM teachers WHERE email = $1`, email,
	).Scan(&t.ID, &t.Email, &t.Name, &t.PasswordHash, &t.Role, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a teacher by ID.
func (r *TeacherRepository) GetByID(ctx context.Context, id int) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM teachers WHERE id = $1`, id,
	).Scan(&t.ID, &t.Email, &t.Name, &t.PasswordHash, &t.Role, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new teacher. Returns ErrDuplicate when the email is taken.
func (r *TeacherRepository) Create(ctx context.Context, t *model.Teacher) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO teachers (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Email, t.Name, t.PasswordHash, t.Role,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return translateWriteErr(err)
}
