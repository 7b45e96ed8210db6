package model

import "time"

// Room is a physical classroom. A nil Capacity means no declared limit.
type Room struct {
	ID        int       `json:"id"`
	Number    string    `json:"number"`
	Building  *string   `json:"building,omitempty"`
	Capacity  *int      `json:"capacity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomRequest is the payload for creating or updating a room.
type RoomRequest struct {
	Number   string  `json:"number" binding:"required,min=1,max=20"`
	Building *string `json:"building" binding:"omitempty,max=100"`
	Capacity *int    `json:"capacity" binding:"omitempty,min=1"`
}
