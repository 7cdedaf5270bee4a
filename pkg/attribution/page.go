package attribution

import (
	"net/http"
	"net/url"
	"strings"
)

// Page is the location and referrer of the current page load.
type Page interface {
	URL() *url.URL
	Referrer() string
}

// StaticPage is a Page with fixed values.
type StaticPage struct {
	url      *url.URL
	referrer string
}

// NewPage parses rawURL into a Page.
func NewPage(rawURL, referrer string) (*StaticPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &StaticPage{url: u, referrer: referrer}, nil
}

// PageFromRequest reconstructs the absolute page URL of r.
func PageFromRequest(r *http.Request) *StaticPage {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	u := &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	return &StaticPage{url: u, referrer: r.Referer()}
}

func (p *StaticPage) URL() *url.URL {
	if p.url == nil {
		return &url.URL{}
	}
	return cloneURL(p.url)
}

func (p *StaticPage) Referrer() string { return p.referrer }

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
