package scriptconfig

import "errors"

var (
	ErrMalformedDomains         = errors.New("scriptconfig.malformed_domains")
	ErrMalformedCookieOptions   = errors.New("scriptconfig.malformed_cookie_options")
	ErrInvalidAttributionModel  = errors.New("scriptconfig.invalid_attribution_model")
	ErrScriptNotFound           = errors.New("scriptconfig.script_not_found")
	ErrUnsupportedAttributeType = errors.New("scriptconfig.unsupported_attribute_type")
)
