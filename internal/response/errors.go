package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt-specific ──────────────────────────────────────────────
	ErrAttemptLimitExceeded ErrCode = "ATTEMPT_LIMIT_EXCEEDED"
	ErrAttemptNotActive     ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrAttemptNotCompleted  ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrInvalidOption        ErrCode = "INVALID_OPTION"
	ErrInvalidEventKind     ErrCode = "INVALID_EVENT_KIND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."

	case ErrAttemptLimitExceeded:
		return "You have used all allowed attempts for this quiz."
	case ErrAttemptNotActive:
		return "This attempt is no longer in progress."
	case ErrAttemptNotCompleted:
		return "This attempt has not been submitted yet."
	case ErrInvalidOption:
		return "The option does not belong to this question."
	case ErrInvalidEventKind:
		return "Unknown event kind."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
