// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflicting concurrent update")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrAccountBlocked = errors.New("account is not active")

	ErrInsufficientPoints = errors.New("insufficient points")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrGenerationFailure  = errors.New("voucher code generation failed")
)

// AppError is an error that already knows how it should be rendered.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already exists",
		http.StatusConflict,
		"DUPLICATE",
	)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func InsufficientPointsError(have, need int64) *AppError {
	return NewAppError(
		ErrInsufficientPoints,
		fmt.Sprintf("not enough points: you have %d, %d required", have, need),
		http.StatusBadRequest,
		"INSUFFICIENT_POINTS",
	)
}

func RateLimitedError() *AppError {
	return NewAppError(
		ErrRateLimited,
		"too many requests, try again later",
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

func GenerationFailureError() *AppError {
	return NewAppError(
		ErrGenerationFailure,
		"could not generate a voucher code, please retry",
		http.StatusInternalServerError,
		"VOUCHER_GENERATION_FAILED",
	)
}

func AccountInactiveError() *AppError {
	return NewAppError(ErrAccountBlocked, "account is not active", http.StatusForbidden, "ACCOUNT_INACTIVE")
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "token is invalid", http.StatusUnauthorized, "TOKEN_INVALID")
}

// MapDomainError converts a workflow error into its client-facing form.
// Errors that match no known kind are returned unchanged and should be
// treated as internal failures.
func MapDomainError(err error, resource string) error {
	if IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError(resource)
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("")
	case errors.Is(err, ErrInvalidInput):
		return ValidationError(validationMessage(err))
	case errors.Is(err, ErrInsufficientPoints):
		var se *ShortfallError
		if errors.As(err, &se) {
			return InsufficientPointsError(se.Have, se.Need)
		}
		return NewAppError(err, "not enough points", http.StatusBadRequest, "INSUFFICIENT_POINTS")
	case errors.Is(err, ErrRateLimited):
		return RateLimitedError()
	case errors.Is(err, ErrGenerationFailure):
		return GenerationFailureError()
	case errors.Is(err, ErrConflict):
		return ConflictError("request conflicts with a concurrent update, please retry")
	case errors.Is(err, ErrDuplicateKey):
		return DuplicateError(resource)
	case errors.Is(err, ErrAccountBlocked):
		return AccountInactiveError()
	}

	return err
}

// ShortfallError reports a balance that cannot cover a debit.
type ShortfallError struct {
	Have int64
	Need int64
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("have %d points, need %d", e.Have, e.Need)
}

func (e *ShortfallError) Unwrap() error {
	return ErrInsufficientPoints
}

// FieldError lets validation failures carry a client-safe message.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

func InvalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

func validationMessage(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return "invalid input"
}
