package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

// RoomService manages classrooms and their declared capacity.
type RoomService struct {
	roomRepo *repository.RoomRepository
	log      zerolog.Logger
}

func NewRoomService(roomRepo *repository.RoomRepository, log zerolog.Logger) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		log:      log.With().Str("component", "room_service").Logger(),
	}
}

func (s *RoomService) List(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.roomRepo.List(ctx)
	if rooms == nil && err == nil {
		rooms = []model.Room{}
	}
	return rooms, err
}

func (s *RoomService) GetByID(ctx context.Context, id int) (*model.Room, error) {
	rm, err := s.roomRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

func (s *RoomService) Create(ctx context.Context, rm *model.Room) error {
	if err := s.roomRepo.Create(ctx, rm); err != nil {
		return err
	}
	s.log.Info().Int("room_id", rm.ID).Str("number", rm.Number).Msg("Room created")
	return nil
}

// Update changes a room. Lowering capacity below the current count is allowed;
// the limit applies to new enrollments only.
func (s *RoomService) Update(ctx context.Context, rm *model.Room) error {
	ok, err := s.roomRepo.Update(ctx, rm)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotFound
	}
	return nil
}

func (s *RoomService) Delete(ctx context.Context, id int) error {
	ok, err := s.roomRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotFound
	}
	return nil
}
