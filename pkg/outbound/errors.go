package outbound

import "errors"

var (
	ErrInvalidURL   = errors.New("outbound.invalid_url")
	ErrCommitFailed = errors.New("outbound.srcdoc_commit_failed")
)
