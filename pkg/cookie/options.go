package cookie

import (
	"strings"
	"time"
)

// SameSite values as they appear in the serialized cookie.
const (
	SameSiteLax    = "Lax"
	SameSiteStrict = "Strict"
	SameSiteNone   = "None"
)

// Options are the cookie attributes. Zero values are omitted on write.
type Options struct {
	Domain   string    `yaml:"domain,omitempty"`
	Path     string    `yaml:"path,omitempty"`
	SameSite string    `yaml:"same_site,omitempty"`
	Expires  time.Time `yaml:"expires,omitempty"`
	MaxAge   int       `yaml:"max_age,omitempty"`
	Secure   bool      `yaml:"secure,omitempty"`
	HTTPOnly bool      `yaml:"http_only,omitempty"`
}

type Option func(*Options)

func WithDomain(domain string) Option {
	return func(o *Options) { o.Domain = domain }
}

func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

// WithSameSite accepts "lax", "strict" or "none" in any case. Anything else
// clears the attribute.
func WithSameSite(mode string) Option {
	return func(o *Options) { o.SameSite = NormalizeSameSite(mode) }
}

func WithExpires(t time.Time) Option {
	return func(o *Options) { o.Expires = t }
}

// WithExpiresIn sets an absolute expiry d from now.
func WithExpiresIn(d time.Duration) Option {
	return func(o *Options) { o.Expires = time.Now().Add(d) }
}

func WithMaxAge(seconds int) Option {
	return func(o *Options) { o.MaxAge = seconds }
}

func WithSecure(secure bool) Option {
	return func(o *Options) { o.Secure = secure }
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) { o.HTTPOnly = httpOnly }
}

// NormalizeSameSite maps user supplied SameSite spellings to the canonical
// attribute value, or "" when the value is unknown or "false".
func NormalizeSameSite(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "lax":
		return SameSiteLax
	case "strict", "true":
		return SameSiteStrict
	case "none":
		return SameSiteNone
	default:
		return ""
	}
}

// applyOptions copies base and applies opts to the copy.
func applyOptions(base Options, opts []Option) Options {
	result := base
	for _, opt := range opts {
		if opt != nil {
			opt(&result)
		}
	}
	return result
}

// DefaultDomain returns the cookie domain shared by all subdomains of
// hostname: a leading dot plus the hostname without "www.". Localhost gets no
// domain attribute at all.
func DefaultDomain(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" || hostname == "localhost" {
		return ""
	}
	return "." + strings.TrimPrefix(hostname, "www.")
}
