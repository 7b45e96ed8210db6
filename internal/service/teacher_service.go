package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

// TeacherService handles staff accounts.
type TeacherService struct {
	teacherRepo *repository.TeacherRepository
	auth        *AuthService
}

// NewTeacherService creates a new TeacherService.
func NewTeacherService(teacherRepo *repository.TeacherRepository, auth *AuthService) *TeacherService {
	return &TeacherService{teacherRepo: teacherRepo, auth: auth}
}

// Authenticate checks credentials and returns the staff member on success.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *TeacherService) Authenticate(ctx context.Context, email, password string) (*model.Teacher, error) {
	teacher, err := s.teacherRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.auth.CheckPassword(teacher.PasswordHash, password); err != nil {
		return nil, err
	}
	return teacher, nil
}

// GetByID retrieves a staff member by ID.
func (s *TeacherService) GetByID(ctx context.Context, id int) (*model.Teacher, error) {
	t, err := s.teacherRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// Create registers a staff member; password is the plaintext to hash.
func (s *TeacherService) Create(ctx context.Context, t *model.Teacher, password string) error {
	if !t.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, t.Role)
	}
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	t.PasswordHash = hash
	return s.teacherRepo.Create(ctx, t)
}
