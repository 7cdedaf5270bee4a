package scriptconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/attribution/pkg/cookie"
)

type rawDomains struct {
	Refer    *string         `json:"refer"`
	Site     *string         `json:"site"`
	Outbound json.RawMessage `json:"outbound"`
}

// parseDomains decodes the data-domains JSON. Any error discards the whole
// object.
func parseDomains(raw string) (Domains, error) {
	var rd rawDomains
	if err := json.Unmarshal([]byte(raw), &rd); err != nil {
		return Domains{}, errors.Join(ErrMalformedDomains, err)
	}

	var d Domains
	if rd.Refer != nil {
		d.Refer = strings.TrimSpace(*rd.Refer)
	}
	if rd.Site != nil {
		d.Site = strings.TrimSpace(*rd.Site)
	}

	outbound, err := parseOutbound(rd.Outbound)
	if err != nil {
		return Domains{}, errors.Join(ErrMalformedDomains, err)
	}
	d.Outbound = outbound
	return d, nil
}

// parseOutbound accepts a comma-separated string or an array of strings.
func parseOutbound(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return strings.Split(s, ","), nil
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("outbound must be a string or an array, got %s", raw)
	}
}

type rawCookieOptions struct {
	Domain        *string         `json:"domain"`
	Path          *string         `json:"path"`
	SameSite      json.RawMessage `json:"sameSite"`
	Secure        *bool           `json:"secure"`
	HTTPOnly      *bool           `json:"httpOnly"`
	MaxAge        *float64        `json:"maxAge"`
	Expires       json.RawMessage `json:"expires"`
	ExpiresInDays *float64        `json:"expiresInDays"`
}

// resolveCookie overlays data-cookie-options on the defaults. An absolute
// expires wins over expiresInDays.
func resolveCookie(raw, hostname string, now time.Time) (cookie.Options, error) {
	opts := DefaultCookie(hostname, now)
	if raw == "" {
		return opts, nil
	}

	var rc rawCookieOptions
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return opts, errors.Join(ErrMalformedCookieOptions, err)
	}

	out := opts
	if rc.Domain != nil {
		out.Domain = strings.TrimSpace(*rc.Domain)
	}
	if rc.Path != nil {
		out.Path = strings.TrimSpace(*rc.Path)
	}
	if len(rc.SameSite) > 0 {
		mode, err := parseSameSite(rc.SameSite)
		if err != nil {
			return opts, errors.Join(ErrMalformedCookieOptions, err)
		}
		out.SameSite = mode
	}
	if rc.Secure != nil {
		out.Secure = *rc.Secure
	}
	if rc.HTTPOnly != nil {
		out.HTTPOnly = *rc.HTTPOnly
	}
	if rc.MaxAge != nil {
		out.MaxAge = int(math.Floor(*rc.MaxAge))
	}

	if rc.ExpiresInDays != nil && *rc.ExpiresInDays > 0 {
		out.Expires = now.Add(time.Duration(*rc.ExpiresInDays * float64(24*time.Hour)))
	}
	if len(rc.Expires) > 0 && !bytes.Equal(bytes.TrimSpace(rc.Expires), []byte("null")) {
		t, err := parseExpires(rc.Expires)
		if err != nil {
			return opts, errors.Join(ErrMalformedCookieOptions, err)
		}
		out.Expires = t
	}
	return out, nil
}

func parseSameSite(raw json.RawMessage) (string, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return cookie.SameSiteStrict, nil
		}
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("sameSite: %w", err)
	}
	return cookie.NormalizeSameSite(s), nil
}

// parseExpires accepts an HTTP date, an RFC 3339 timestamp or epoch
// milliseconds.
func parseExpires(raw json.RawMessage) (time.Time, error) {
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("expires: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := http.ParseTime(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("expires: unsupported date %q", s)
}
