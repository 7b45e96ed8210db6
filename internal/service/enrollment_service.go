package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

// EvaluateConflicts checks a candidate against a snapshot of existing enrollments.
// Conflicts are reported in a fixed order: duplicate, capacity, room-subject mismatch.
func EvaluateConflicts(snap *model.ConflictSnapshot, cand model.EnrollmentRequest) []model.Conflict {
	conflicts := []model.Conflict{}
	if snap == nil {
		return conflicts
	}

	if snap.AlreadyEnrolled {
		conflicts = append(conflicts, model.NewConflict(model.ConflictDuplicateEnrollment))
	}

	if cand.RoomID != nil && snap.Room != nil {
		if capacity := snap.Room.Capacity; capacity != nil && snap.RoomEnrollmentCount >= *capacity {
			conflicts = append(conflicts, model.NewConflict(model.ConflictRoomCapacity))
		}
		for _, subjectID := range snap.RoomSubjectIDs {
			if subjectID != cand.SubjectID {
				conflicts = append(conflicts, model.NewConflict(model.ConflictRoomSubjectMismatch))
				break
			}
		}
	}

	return conflicts
}

// EnrollmentService gates enrollment creation on the conflict rules.
type EnrollmentService struct {
	store EnrollmentStore
	log   zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(store EnrollmentStore, log zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		store: store,
		log:   log.With().Str("component", "enrollment_service").Logger(),
	}
}

func validateCandidate(in model.EnrollmentRequest) error {
	switch {
	case in.SubjectID <= 0:
		return fmt.Errorf("%w: subject is required", ErrValidation)
	case in.StudentID <= 0:
		return fmt.Errorf("%w: student is required", ErrValidation)
	case in.RoomID != nil && *in.RoomID <= 0:
		return fmt.Errorf("%w: room must be a positive id", ErrValidation)
	}
	return nil
}

// CheckConflicts reports every rule the candidate would violate. An empty list means it may be created.
func (s *EnrollmentService) CheckConflicts(ctx context.Context, in model.EnrollmentRequest) ([]model.Conflict, error) {
	if err := validateCandidate(in); err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx, in.SubjectID, in.StudentID, in.RoomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("read conflict snapshot: %w", err)
	}
	return EvaluateConflicts(snap, in), nil
}

// CreateEnrollment inserts the enrollment when no conflict applies, re-checking under a room lock.
// A refusal is returned as *ConflictError.
func (s *EnrollmentService) CreateEnrollment(ctx context.Context, teacherID int, in model.EnrollmentRequest) (*model.Enrollment, error) {
	if err := validateCandidate(in); err != nil {
		return nil, err
	}

	e := &model.Enrollment{
		ID:        uuid.New(),
		SubjectID: in.SubjectID,
		StudentID: in.StudentID,
		RoomID:    in.RoomID,
	}
	if teacherID > 0 {
		e.CreatedBy = &teacherID
	}

	conflicts, err := s.store.CreateChecked(ctx, e, func(snap *model.ConflictSnapshot) []model.Conflict {
		return EvaluateConflicts(snap, in)
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrRoomNotFound
		case errors.Is(err, repository.ErrReferenceNotFound):
			return nil, ErrReferenceNotFound
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	if len(conflicts) > 0 {
		for _, c := range conflicts {
			metrics.EnrollmentConflicts.WithLabelValues(string(c.Code)).Inc()
		}
		s.log.Info().
			Int("subject_id", in.SubjectID).
			Int("student_id", in.StudentID).
			Int("conflicts", len(conflicts)).
			Msg("Enrollment refused")
		return nil, &ConflictError{Conflicts: conflicts}
	}

	s.log.Info().
		Str("enrollment_id", e.ID.String()).
		Int("subject_id", e.SubjectID).
		Int("student_id", e.StudentID).
		Msg("Enrollment created")
	return e, nil
}

// GetEnrollment returns one enrollment with its display fields.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return d, nil
}

// ListEnrollments returns enrollments matching the filter, newest first.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if list == nil {
		list = []model.EnrollmentDetail{}
	}
	return list, nil
}

// DeleteEnrollment removes an enrollment.
func (s *EnrollmentService) DeleteEnrollment(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if !deleted {
		return ErrEnrollmentNotFound
	}
	s.log.Info().Str("enrollment_id", id.String()).Msg("Enrollment deleted")
	return nil
}
