package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Attendance ────────────────────────────────────────────────────
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotActive    ErrCode = "SESSION_NOT_ACTIVE"
	ErrActiveSessionExists ErrCode = "ACTIVE_SESSION_EXISTS"
	ErrNotSessionOwner     ErrCode = "NOT_SESSION_OWNER"
	ErrInvalidPin          ErrCode = "INVALID_PIN"

	// ─── Enrollment ────────────────────────────────────────────────────
	ErrEnrollmentConflict ErrCode = "ENROLLMENT_CONFLICT"
	ErrRoomNotFound       ErrCode = "ROOM_NOT_FOUND"
	ErrReferenceNotFound  ErrCode = "REFERENCE_NOT_FOUND"

	// ─── AI ────────────────────────────────────────────────────────────
	ErrAIDisabled    ErrCode = "AI_DISABLED"
	ErrAIUnavailable ErrCode = "AI_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid credentials."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to staff."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "The record is still referenced by other data and cannot be deleted."

	// ─── Attendance ────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Attendance session not found."
	case ErrSessionNotActive:
		return "Attendance session is not active."
	case ErrActiveSessionExists:
		return "You already have an active attendance session."
	case ErrNotSessionOwner:
		return "You do not own this attendance session."
	case ErrInvalidPin:
		return "Invalid or expired PIN."

	// ─── Enrollment ────────────────────────────────────────────────────
	case ErrEnrollmentConflict:
		return "Enrollment refused because of conflicts."
	case ErrRoomNotFound:
		return "Room not found."
	case ErrReferenceNotFound:
		return "Referenced subject, student or room does not exist."

	// ─── AI ────────────────────────────────────────────────────────────
	case ErrAIDisabled:
		return "AI features are not configured."
	case ErrAIUnavailable:
		return "The AI provider could not complete the request."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
