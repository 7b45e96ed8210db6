package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

type SubjectRepository struct {
	pool *pgxpool.Pool
}

func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subjects (name, code) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		s.Name, s.Code).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return translateWriteErr(err)
}

func (r *SubjectRepository) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	s := &model.Subject{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, created_at, updated_at FROM subjects WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Code, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubjectRepository) GetAll(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, code, created_at, updated_at FROM subjects ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// Update returns false when no subject has the given ID.
func (r *SubjectRepository) Update(ctx context.Context, s *model.Subject) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subjects SET name = $1, code = $2, updated_at = NOW() WHERE id = $3`,
		s.Name, s.Code, s.ID)
	if err != nil {
		return false, translateWriteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete returns false when no subject has the given ID.
func (r *SubjectRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return false, translateDeleteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
