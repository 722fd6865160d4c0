package domain

import "errors"

// Error kinds. Every error returned by the service layer matches exactly one of
// them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
)

// Error is a kinded error carrying a user-facing message.
type Error struct {
	Kind error
	Msg  string
}

func NewError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

var (
	ErrUserNotFound      = NewError(ErrNotFound, "user not found")
	ErrProductNotFound   = NewError(ErrNotFound, "product not found")
	ErrCartLineNotFound  = NewError(ErrNotFound, "Product not found in the user's cart")
	ErrOrderNotFound     = NewError(ErrNotFound, "order not found")
	ErrEmailInUse        = NewError(ErrConflict, "Email is already in use")
	ErrIncorrectPassword = NewError(ErrForbidden, "Incorrect password")
)
