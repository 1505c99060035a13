package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionRequired    ErrCode = "SESSION_REQUIRED"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrSelectionFull     ErrCode = "SELECTION_FULL"
	ErrSelectionEmpty    ErrCode = "SELECTION_EMPTY"
	ErrQuestionMismatch  ErrCode = "QUESTION_TYPE_MISMATCH"
	ErrIncompleteAttempt ErrCode = "INCOMPLETE_ATTEMPT"
	ErrSubmitInProgress  ErrCode = "SUBMIT_IN_PROGRESS"
	ErrAttemptNotActive  ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrAttemptFinished   ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrAttemptConflict   ErrCode = "ATTEMPT_CONFLICT"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstream            ErrCode = "UPSTREAM_ERROR"
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionRequired:
		return "Please sign in to continue."
	case ErrSessionExpired:
		return "Your session has expired. Please sign in again."
	case ErrTokenInvalid:
		return "Session token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrSelectionFull:
		return "The exam already has the maximum number of questions selected."
	case ErrSelectionEmpty:
		return "Select at least one question."
	case ErrQuestionMismatch:
		return "The question does not match the exam type."
	case ErrIncompleteAttempt:
		return "Please answer all questions before submitting."
	case ErrSubmitInProgress:
		return "This attempt is already being submitted."
	case ErrAttemptNotActive:
		return "This attempt is not in progress."
	case ErrAttemptFinished:
		return "This attempt has not been completed yet."
	case ErrAttemptConflict:
		return "This attempt was changed elsewhere. Please try again."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrUpstream:
		return "API request failed"
	case ErrUpstreamUnavailable:
		return "The LMS server could not be reached. Please try again."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
