package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment assigns a student to a subject, optionally bound to a room.
type Enrollment struct {
	ID        uuid.UUID `json:"id"`
	SubjectID int       `json:"subject_id"`
	StudentID int       `json:"student_id"`
	RoomID    *int      `json:"room_id,omitempty"`
	CreatedBy *int      `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrollmentDetail is an enrollment joined with its display fields.
type EnrollmentDetail struct {
	Enrollment
	SubjectName   string  `json:"subject_name"`
	SubjectCode   string  `json:"subject_code"`
	StudentName   string  `json:"student_name"`
	StudentNumber string  `json:"student_number"`
	RoomNumber    *string `json:"room_number,omitempty"`
}

// EnrollmentFilter narrows an enrollment listing. Nil fields are ignored.
type EnrollmentFilter struct {
	SubjectID *int
	StudentID *int
	RoomID    *int
}

// EnrollmentRequest is the payload for checking or creating an enrollment.
type EnrollmentRequest struct {
	SubjectID int  `json:"subject_id" binding:"required,min=1"`
	StudentID int  `json:"student_id" binding:"required,min=1"`
	RoomID    *int `json:"room_id" binding:"omitempty,min=1"`
}

// ConflictCode identifies which enrollment rule was violated.
type ConflictCode string

const (
	ConflictDuplicateEnrollment ConflictCode = "DUPLICATE_ENROLLMENT"
	ConflictRoomCapacity        ConflictCode = "ROOM_CAPACITY_EXCEEDED"
	ConflictRoomSubjectMismatch ConflictCode = "ROOM_SUBJECT_MISMATCH"
)

var conflictMessages = map[ConflictCode]string{
	ConflictDuplicateEnrollment: "Student is already enrolled in this subject.",
	ConflictRoomCapacity:        "Room capacity exceeded.",
	ConflictRoomSubjectMismatch: "Room is already assigned to another subject.",
}

// Conflict is one itemized reason an enrollment was refused.
type Conflict struct {
	Code    ConflictCode `json:"code"`
	Message string       `json:"message"`
}

// NewConflict builds a conflict carrying the user-facing message for code.
func NewConflict(code ConflictCode) Conflict {
	return Conflict{Code: code, Message: conflictMessages[code]}
}

// ConflictSnapshot is the state of existing enrollments a candidate is checked against.
type ConflictSnapshot struct {
	AlreadyEnrolled bool
	// Room is nil when the candidate names no room.
	Room                *Room
	RoomEnrollmentCount int
	RoomSubjectIDs      []int
}
