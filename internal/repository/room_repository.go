package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// RoomRepository handles room data access.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// GetByID retrieves a room by its ID.
func (r *RoomRepository) GetByID(ctx context.Context, id int) (*model.Room, error) {
	rm := &model.Room{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, number, building, capacity, created_at, updated_at
		 FROM rooms WHERE id = $1`, id,
	).Scan(&rm.ID, &rm.Number, &rm.Building, &rm.Capacity, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// List retrieves all rooms.
func (r *RoomRepository) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, number, building, capacity, created_at, updated_at
		 FROM rooms ORDER BY building NULLS FIRST, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.Number, &rm.Building, &rm.Capacity, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// Create inserts a new room.
func (r *RoomRepository) Create(ctx context.Context, rm *model.Room) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (number, building, capacity)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		rm.Number, rm.Building, rm.Capacity,
	).Scan(&rm.ID, &rm.CreatedAt, &rm.UpdatedAt)
	return translateWriteErr(err)
}

// Update modifies an existing room. Returns false when no room has the given ID.
// Lowering capacity below the current enrollment count is allowed; it only blocks new enrollments.
func (r *RoomRepository) Update(ctx context.Context, rm *model.Room) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET number = $1, building = $2, capacity = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		rm.Number, rm.Building, rm.Capacity, rm.ID,
	)
	if err != nil {
		return false, translateWriteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a room by its ID. Returns false when no room has the given ID.
func (r *RoomRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return false, translateDeleteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
