package domain

import "errors"

// ошибки сервисного слоя. хендлер смотрит только на них: ErrValidation -> 400,
// всё остальное -> 500 без деталей.

var (
	ErrValidation = errors.New("validation failed")
	ErrInRepo     = errors.New("repo error")
	ErrInStorage  = errors.New("storage error")
)

// MsgTitleRequired is returned to clients when a todo is submitted without a title.
const MsgTitleRequired = "Title required"

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Unwrap lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError returns a ValidationError with the given client message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}
