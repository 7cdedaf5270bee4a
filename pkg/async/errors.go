package async

import "errors"

var (
	ErrTimeout        = errors.New("async: operation timed out waiting for future completion")
	ErrAlreadyDrained = errors.New("async: deferred queue already drained")
)
