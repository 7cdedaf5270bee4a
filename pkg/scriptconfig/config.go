package scriptconfig

import (
	"strings"
	"time"

	"github.com/dmitrymomot/attribution/pkg/cookie"
	"github.com/dmitrymomot/attribution/pkg/domainmatch"
)

// Model is the attribution policy deciding which identity signal wins.
type Model string

const (
	// FirstClick keeps the first identifier ever stored.
	FirstClick Model = "first-click"
	// LastClick replaces the stored identifier with every new distinct one.
	LastClick Model = "last-click"
)

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	return m == FirstClick || m == LastClick
}

const (
	DefaultAPIHost       = "https://api.dub.co"
	DefaultQueryParam    = "via"
	DefaultCookieExpires = 90 * 24 * time.Hour
	DefaultModel         = LastClick

	// ClickIDCookie holds the attribution identifier. It doubles as the query
	// parameter carrying an already resolved identifier.
	ClickIDCookie = "dub_id"
	// PartnerDataCookie holds the partner and discount record.
	PartnerDataCookie = "dub_partner_data"
)

// Domains is the effective {refer, site, outbound} view of the configuration.
type Domains struct {
	Refer    string   `json:"refer,omitempty" yaml:"refer,omitempty"`
	Site     string   `json:"site,omitempty" yaml:"site,omitempty"`
	Outbound []string `json:"outbound,omitempty" yaml:"outbound,omitempty"`
}

// Config is the resolved configuration of one page load. Treat it as
// immutable.
type Config struct {
	APIHost          string               `yaml:"api_host"`
	ReferDomain      string               `yaml:"refer_domain,omitempty"`
	SiteDomain       string               `yaml:"site_domain,omitempty"`
	OutboundDomains  domainmatch.Patterns `yaml:"outbound_domains"`
	AttributionModel Model                `yaml:"attribution_model"`
	QueryParam       string               `yaml:"query_param"`
	PublishableKey   string               `yaml:"-"`
	Hostname         string               `yaml:"hostname"`
	Cookie           cookie.Options       `yaml:"cookie"`
}

// Domains returns the {refer, site, outbound} view.
func (c Config) Domains() Domains {
	return Domains{
		Refer:    c.ReferDomain,
		Site:     c.SiteDomain,
		Outbound: c.OutboundDomains.List(),
	}
}

// CookieOptions returns the cookie attributes as Store options.
func (c Config) CookieOptions() []cookie.Option {
	o := c.Cookie
	return []cookie.Option{
		cookie.WithDomain(o.Domain),
		cookie.WithPath(o.Path),
		func(opts *cookie.Options) { opts.SameSite = o.SameSite },
		cookie.WithExpires(o.Expires),
		cookie.WithMaxAge(o.MaxAge),
		cookie.WithSecure(o.Secure),
		cookie.WithHTTPOnly(o.HTTPOnly),
	}
}

// DefaultCookie returns the default cookie attributes for hostname.
func DefaultCookie(hostname string, now time.Time) cookie.Options {
	return cookie.Options{
		Domain:   cookie.DefaultDomain(hostname),
		Path:     "/",
		SameSite: cookie.SameSiteLax,
		Expires:  now.Add(DefaultCookieExpires),
	}
}

// Resolve derives the configuration for a page served from hostname. It never
// fails: malformed attributes fall back to defaults and are reported in the
// returned diagnostics.
func Resolve(attrs Attributes, hostname string, now time.Time) (Config, []error) {
	if attrs == nil {
		attrs = Map{}
	}
	var diags []error

	cfg := Config{
		APIHost:          DefaultAPIHost,
		AttributionModel: DefaultModel,
		QueryParam:       DefaultQueryParam,
		Hostname:         strings.ToLower(hostname),
	}

	if v := attr(attrs, AttrAPIHost); v != "" {
		cfg.APIHost = strings.TrimRight(v, "/")
	}
	if v := attr(attrs, AttrQueryParam); v != "" {
		cfg.QueryParam = v
	}
	cfg.PublishableKey = attr(attrs, AttrPublishableKey)

	if v := attr(attrs, AttrAttributionModel); v != "" {
		model := Model(strings.ToLower(v))
		if model.Valid() {
			cfg.AttributionModel = model
		} else {
			diags = append(diags, ErrInvalidAttributionModel)
		}
	}

	domains, err := resolveDomains(attrs)
	if err != nil {
		diags = append(diags, err)
	}
	cfg.ReferDomain = domains.Refer
	cfg.SiteDomain = domains.Site
	cfg.OutboundDomains = domainmatch.NewPatterns(domains.Outbound)

	cfg.Cookie, err = resolveCookie(attr(attrs, AttrCookieOptions), hostname, now)
	if err != nil {
		diags = append(diags, err)
	}

	return cfg, diags
}

// resolveDomains merges the JSON domains object with the legacy attributes.
func resolveDomains(attrs Attributes) (Domains, error) {
	var (
		d   Domains
		err error
	)
	if raw := attr(attrs, AttrDomains); raw != "" {
		d, err = parseDomains(raw)
	}

	if d.Refer == "" {
		d.Refer = attr(attrs, AttrShortDomain)
	}
	if d.Site == "" {
		d.Site = attr(attrs, AttrSiteShortDomain)
	}
	if len(d.Outbound) == 0 {
		if v := attr(attrs, AttrOutboundDomains); v != "" {
			d.Outbound = strings.Split(v, ",")
		}
	}
	return d, err
}

func attr(attrs Attributes, name string) string {
	v, _ := attrs.Get(name)
	return strings.TrimSpace(v)
}
