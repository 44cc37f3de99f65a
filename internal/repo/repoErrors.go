package repo

import "errors"

var (
	ErrActivePollNotFound = errors.New("no active poll session")
	ErrUserNotFound       = errors.New("user not found")
)
