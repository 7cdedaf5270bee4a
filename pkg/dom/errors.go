package dom

import "errors"

var (
	ErrParse       = errors.New("dom.parse_failed")
	ErrCrossOrigin = errors.New("dom.cross_origin_frame")
	ErrNoBody      = errors.New("dom.no_body")
	ErrDetached    = errors.New("dom.detached_document")
	ErrInvalidURL  = errors.New("dom.invalid_url")
)
