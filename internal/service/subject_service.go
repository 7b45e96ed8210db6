package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

type SubjectService struct {
	subjectRepo *repository.SubjectRepository
	log         zerolog.Logger
}

func NewSubjectService(subjectRepo *repository.SubjectRepository, log zerolog.Logger) *SubjectService {
	return &SubjectService{
		subjectRepo: subjectRepo,
		log:         log.With().Str("component", "subject_service").Logger(),
	}
}

func (s *SubjectService) GetAll(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.subjectRepo.GetAll(ctx)
	if subjects == nil && err == nil {
		subjects = []model.Subject{}
	}
	return subjects, err
}

func (s *SubjectService) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	sub, err := s.subjectRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *SubjectService) Create(ctx context.Context, sub *model.Subject) error {
	if err := s.subjectRepo.Create(ctx, sub); err != nil {
		return err
	}
	s.log.Info().Int("subject_id", sub.ID).Str("code", sub.Code).Msg("Subject created")
	return nil
}

func (s *SubjectService) Update(ctx context.Context, sub *model.Subject) error {
	ok, err := s.subjectRepo.Update(ctx, sub)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *SubjectService) Delete(ctx context.Context, id int) error {
	ok, err := s.subjectRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
