package repository

import "errors"

// ErrCorruptMessage is returned when a stored message can no longer be
// decoded. The service layer treats it as an internal error.
var ErrCorruptMessage = errors.New("repository: corrupt message")
