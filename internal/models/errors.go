package models

import "errors"

var (
	ErrValidation      = errors.New("invalid message")
	ErrNotFriends      = errors.New("users are not friends")
	ErrGateUnavailable = errors.New("friendship service unavailable")
	ErrStorage         = errors.New("storage failure")
	ErrUserNotFound    = errors.New("user not found")
)
