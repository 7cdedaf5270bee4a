package attribution

import "errors"

var (
	ErrClickAlreadyTracked = errors.New("attribution.click_already_tracked")
	ErrNoReferDomain       = errors.New("attribution.no_refer_domain")
	ErrEmptyKey            = errors.New("attribution.empty_key")
	ErrUnknownTask         = errors.New("attribution.unknown_task")
	ErrInvalidPolicy       = errors.New("attribution.invalid_policy")
)
