package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
	"github.com/stemsi/eduadmin-backend/internal/response"
)

// StudentService handles student business logic.
type StudentService struct {
	studentRepo *repository.StudentRepository
	auth        *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, auth *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, auth: auth}
}

// Authenticate checks a student's credentials.
func (s *StudentService) Authenticate(ctx context.Context, studentNumber, password string) (*model.Student, error) {
	student, err := s.studentRepo.GetByStudentNumber(ctx, studentNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.auth.CheckPassword(student.PasswordHash, password); err != nil {
		return nil, err
	}
	return student, nil
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return student, err
}

// ListStudents retrieves students with pagination and an optional name/number search.
func (s *StudentService) ListStudents(ctx context.Context, search string, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	students, total, err := s.studentRepo.ListPaginated(ctx, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}

	return students, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new student with a hashed password.
func (s *StudentService) Create(ctx context.Context, student *model.Student, password string) error {
	hashed, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	student.PasswordHash = hashed
	return s.studentRepo.Create(ctx, student)
}

// Update modifies a student's details. An empty password leaves it unchanged.
func (s *StudentService) Update(ctx context.Context, student *model.Student, password string) error {
	ok, err := s.studentRepo.Update(ctx, student)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if password != "" {
		hashed, err := s.auth.HashPassword(password)
		if err != nil {
			return err
		}
		return s.studentRepo.UpdatePassword(ctx, student.ID, hashed)
	}
	return nil
}

// Delete removes a student and drops any live login.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	ok, err := s.studentRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.auth.ResetStudentSession(ctx, id)
}
