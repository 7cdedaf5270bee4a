package cookie

import "errors"

var (
	ErrCookieNotFound = errors.New("cookie.not_found")
	ErrInvalidName    = errors.New("cookie.invalid_name")
	ErrHeadersSent    = errors.New("cookie.headers_sent")
)
