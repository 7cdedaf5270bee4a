package conversion

import "errors"

var (
	ErrMissingClickID   = errors.New("conversion.missing_click_id")
	ErrMissingSecretKey = errors.New("conversion.missing_secret_key")
	ErrInvalidProperty  = errors.New("conversion.invalid_property")
)
