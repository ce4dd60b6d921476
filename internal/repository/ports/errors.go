package ports

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrTokenLimitReached = errors.New("token limit reached")
	ErrTokenNotFound     = errors.New("token not in session list")
	ErrAlreadyConsumed   = errors.New("reset record already consumed")
)
