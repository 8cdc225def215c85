package apperrors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrNoIdentity         = errors.New("no identity")
	ErrLoginFailed        = errors.New("interactive login failed")
	ErrLoginUnavailable   = errors.New("interactive login is not configured")
	ErrSubscriptionFailed = errors.New("remote subscription failed")
	ErrClosed             = errors.New("closed")
)
