package service

import (
	"errors"
	"strings"

	"github.com/stemsi/eduadmin-backend/internal/model"
)

var (
	// ErrValidation wraps every input rejection made before persistence.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")

	ErrSessionNotFound     = errors.New("attendance session not found")
	ErrNotSessionOwner     = errors.New("attendance session belongs to another teacher")
	ErrSessionNotActive    = errors.New("attendance session is not active")
	ErrActiveSessionExists = errors.New("teacher already has an active attendance session")
	ErrPinUnavailable      = errors.New("could not allocate a unique pin")
	// ErrInvalidPin covers unknown, stale, ended and expired PINs alike.
	ErrInvalidPin = errors.New("invalid or expired pin")

	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentConflict = errors.New("enrollment conflicts with existing enrollments")
	ErrRoomNotFound       = errors.New("room not found")
	ErrReferenceNotFound  = errors.New("subject, student or room does not exist")
)

// ConflictError refuses an enrollment and carries the itemized reasons.
type ConflictError struct {
	Conflicts []model.Conflict
}

func (e *ConflictError) Error() string {
	codes := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		codes = append(codes, string(c.Code))
	}
	return ErrEnrollmentConflict.Error() + ": " + strings.Join(codes, ", ")
}

// Is lets callers match with errors.Is(err, ErrEnrollmentConflict).
func (e *ConflictError) Is(target error) bool {
	return target == ErrEnrollmentConflict
}

// ValidationMessage strips the ErrValidation prefix for display.
func ValidationMessage(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, ErrValidation.Error()+": ")
}
