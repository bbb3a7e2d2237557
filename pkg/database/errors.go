package database

import "errors"

// ErrNotReady indicates startup has not yet established a connection.
var ErrNotReady = errors.New("database not ready")
