package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one student's proof of presence for one session.
type AttendanceRecord struct {
	SessionID uuid.UUID `json:"session_id"`
	StudentID int       `json:"student_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Attendee is a record resolved to the student's display fields.
type Attendee struct {
	StudentID     int       `json:"student_id"`
	StudentNumber string    `json:"student_number"`
	StudentName   string    `json:"student_name"`
	StudentEmail  string    `json:"student_email"`
	MarkedAt      time.Time `json:"marked_at"`
}

// StudentAttendance is a row of a student's own attendance history.
type StudentAttendance struct {
	SessionID  uuid.UUID `json:"session_id"`
	CourseName string    `json:"course_name"`
	Location   *string   `json:"location,omitempty"`
	StartTime  time.Time `json:"start_time"`
	MarkedAt   time.Time `json:"marked_at"`
}

// SubmitPinRequest is the payload a student sends to mark attendance.
type SubmitPinRequest struct {
	Pin string `json:"pin" binding:"required,pin"`
}

// SubmitPinResult is returned after a successful PIN submission.
type SubmitPinResult struct {
	Record        AttendanceRecord `json:"record"`
	CourseName    string           `json:"course_name"`
	AlreadyMarked bool             `json:"already_marked"`
}
