package service

import (
	"errors"

	"github.com/njprem/accountd/internal/repository/ports"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateEmail         = errors.New("email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrDeviceLimitExceeded    = errors.New("maximum number of devices reached")
	ErrUserNotFound           = errors.New("user not found")
	ErrSessionAlreadyInvalid  = errors.New("session already invalid")
	ErrNoFieldsProvided       = errors.New("no fields provided")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidResetLink       = errors.New("invalid reset link")
	ErrExpiredLink            = errors.New("reset link has expired")
	ErrStore                  = errors.New("store failure")
	ErrEmailDelivery          = errors.New("email delivery failed")
	ErrDelegatedLoginDisabled = errors.New("delegated login disabled")
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError hides the driver error behind the operation name. The cause stays
// reachable through Unwrap for logging.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store failure: " + e.Op
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ports.ErrNotFound)
}
