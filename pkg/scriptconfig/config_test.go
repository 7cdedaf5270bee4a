package scriptconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/dmitrymomot/attribution/pkg/cookie"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	cfg, diags := scriptconfig.Resolve(scriptconfig.Map{}, "www.shop.com", now)
	assert.Empty(t, diags)
	assert.Equal(t, "https://api.dub.co", cfg.APIHost)
	assert.Equal(t, scriptconfig.LastClick, cfg.AttributionModel)
	assert.Equal(t, "via", cfg.QueryParam)
	assert.Equal(t, "", cfg.ReferDomain)
	assert.Equal(t, 0, cfg.OutboundDomains.Len())
	assert.Equal(t, cookie.Options{
		Domain:   ".shop.com",
		Path:     "/",
		SameSite: cookie.SameSiteLax,
		Expires:  now.Add(90 * 24 * time.Hour),
	}, cfg.Cookie)
}

func TestResolve_LocalhostHasNoCookieDomain(t *testing.T) {
	t.Parallel()

	cfg, _ := scriptconfig.Resolve(nil, "localhost", now)
	assert.Equal(t, "", cfg.Cookie.Domain)
}

func TestResolve_Domains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		attrs     scriptconfig.Map
		want      scriptconfig.Domains
		wantDiags bool
	}{
		{
			name: "json domains",
			attrs: scriptconfig.Map{
				"data-domains": `{"refer": "go.example.com", "site": "site.example.com", "outbound": "example.com,other.com"}`,
			},
			want: scriptconfig.Domains{Refer: "go.example.com", Site: "site.example.com", Outbound: []string{"example.com", "other.com"}},
		},
		{
			name:  "legacy short domain",
			attrs: scriptconfig.Map{"data-short-domain": "go.example.com"},
			want:  scriptconfig.Domains{Refer: "go.example.com"},
		},
		{
			name: "json refer wins over legacy",
			attrs: scriptconfig.Map{
				"data-short-domain": "old.example.com",
				"data-domains":      `{"refer": "new.example.com"}`,
			},
			want: scriptconfig.Domains{Refer: "new.example.com"},
		},
		{
			name: "legacy fills absent json refer",
			attrs: scriptconfig.Map{
				"data-short-domain": "old.example.com",
				"data-domains":      `{"site": "site.example.com"}`,
			},
			want: scriptconfig.Domains{Refer: "old.example.com", Site: "site.example.com"},
		},
		{
			name: "outbound array",
			attrs: scriptconfig.Map{
				"data-domains": `{"outbound": [" Dub.sh ", "git.new", "dub.sh"]}`,
			},
			want: scriptconfig.Domains{Outbound: []string{"dub.sh", "git.new"}},
		},
		{
			name: "legacy site and outbound attributes",
			attrs: scriptconfig.Map{
				"data-site-short-domain": "site.example.com",
				"data-outbound-domains":  "example.com, *.other.com",
			},
			want: scriptconfig.Domains{Site: "site.example.com", Outbound: []string{"example.com", "*.other.com"}},
		},
		{
			name: "malformed json falls back to legacy entirely",
			attrs: scriptconfig.Map{
				"data-short-domain": "old.example.com",
				"data-domains":      `{"refer": "new.example.com",`,
			},
			want:      scriptconfig.Domains{Refer: "old.example.com"},
			wantDiags: true,
		},
		{
			name: "wrong outbound type discards the whole object",
			attrs: scriptconfig.Map{
				"data-short-domain": "old.example.com",
				"data-domains":      `{"refer": "new.example.com", "outbound": 42}`,
			},
			want:      scriptconfig.Domains{Refer: "old.example.com"},
			wantDiags: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, diags := scriptconfig.Resolve(tt.attrs, "localhost", now)
			assert.Equal(t, tt.want, cfg.Domains())
			if tt.wantDiags {
				require.Len(t, diags, 1)
				assert.ErrorIs(t, diags[0], scriptconfig.ErrMalformedDomains)
			} else {
				assert.Empty(t, diags)
			}
		})
	}
}

func TestResolve_AttributionModel(t *testing.T) {
	t.Parallel()

	cfg, diags := scriptconfig.Resolve(scriptconfig.Map{"data-attribution-model": "first-click"}, "localhost", now)
	assert.Empty(t, diags)
	assert.Equal(t, scriptconfig.FirstClick, cfg.AttributionModel)

	cfg, diags = scriptconfig.Resolve(scriptconfig.Map{"data-attribution-model": "linear"}, "localhost", now)
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], scriptconfig.ErrInvalidAttributionModel)
	assert.Equal(t, scriptconfig.LastClick, cfg.AttributionModel)
}

func TestResolve_ScalarAttributes(t *testing.T) {
	t.Parallel()

	cfg, _ := scriptconfig.Resolve(scriptconfig.Map{
		"data-api-host":        "https://api.example.com/",
		"data-query-param":     "ref",
		"data-publishable-key": "dub_pk_123",
	}, "localhost", now)
	assert.Equal(t, "https://api.example.com", cfg.APIHost)
	assert.Equal(t, "ref", cfg.QueryParam)
	assert.Equal(t, "dub_pk_123", cfg.PublishableKey)
}

func TestResolve_CookieOptions(t *testing.T) {
	t.Parallel()

	absolute := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		raw       string
		check     func(t *testing.T, o cookie.Options)
		wantDiags bool
	}{
		{
			name: "expiresInDays is relative to resolution time",
			raw:  `{"expiresInDays": 60}`,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, now.Add(60*24*time.Hour), o.Expires)
				assert.Equal(t, ".shop.com", o.Domain)
			},
		},
		{
			name: "absolute expires wins over expiresInDays",
			raw:  `{"expiresInDays": 60, "expires": "Fri, 01 Jan 2027 00:00:00 GMT"}`,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, absolute, o.Expires)
			},
		},
		{
			name: "expires as epoch milliseconds",
			raw:  `{"expires": 1798761600000}`,
			check: func(t *testing.T, o cookie.Options) {
				assert.True(t, absolute.Equal(o.Expires))
			},
		},
		{
			name: "attribute overrides",
			raw:  `{"domain": ".other.com", "path": "/app", "sameSite": "strict", "secure": true, "httpOnly": false}`,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, ".other.com", o.Domain)
				assert.Equal(t, "/app", o.Path)
				assert.Equal(t, cookie.SameSiteStrict, o.SameSite)
				assert.True(t, o.Secure)
			},
		},
		{
			name: "sameSite false removes the attribute",
			raw:  `{"sameSite": false}`,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, "", o.SameSite)
			},
		},
		{
			name:      "malformed json keeps defaults",
			raw:       `{"expiresInDays": `,
			wantDiags: true,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, scriptconfig.DefaultCookie("www.shop.com", now), o)
			},
		},
		{
			name:      "unsupported expires keeps defaults",
			raw:       `{"path": "/app", "expires": "next tuesday"}`,
			wantDiags: true,
			check: func(t *testing.T, o cookie.Options) {
				assert.Equal(t, "/", o.Path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, diags := scriptconfig.Resolve(scriptconfig.Map{"data-cookie-options": tt.raw}, "www.shop.com", now)
			if tt.wantDiags {
				require.Len(t, diags, 1)
				assert.ErrorIs(t, diags[0], scriptconfig.ErrMalformedCookieOptions)
			} else {
				assert.Empty(t, diags)
			}
			tt.check(t, cfg.Cookie)
		})
	}
}

func TestFindScript(t *testing.T) {
	t.Parallel()

	doc, err := html.Parse(strings.NewReader(`<html><head>
		<script src="/app.js"></script>
		<script src="https://www.dubcdn.com/analytics/script.js" defer
			data-domains='{"refer": "go.example.com"}'
			data-attribution-model="first-click"></script>
	</head><body></body></html>`))
	require.NoError(t, err)

	node, err := scriptconfig.FindScript(doc, "analytics/script")
	require.NoError(t, err)
	attrs := scriptconfig.FromNode(node)

	cfg, diags := scriptconfig.Resolve(attrs, "localhost", now)
	assert.Empty(t, diags)
	assert.Equal(t, "go.example.com", cfg.ReferDomain)
	assert.Equal(t, scriptconfig.FirstClick, cfg.AttributionModel)

	node2, err := scriptconfig.FindScript(doc, "")
	require.NoError(t, err)
	assert.Same(t, node, node2)

	_, err = scriptconfig.FindScript(doc, "missing.js")
	assert.ErrorIs(t, err, scriptconfig.ErrScriptNotFound)
}

func TestFromHTML(t *testing.T) {
	t.Parallel()

	attrs, err := scriptconfig.FromHTML(strings.NewReader(
		`<script src="/_attribution/script.js" data-short-domain="go.shop.com"></script>`,
	), "")
	require.NoError(t, err)
	v, ok := attrs.Get(scriptconfig.AttrShortDomain)
	require.True(t, ok)
	assert.Equal(t, "go.shop.com", v)

	_, err = scriptconfig.FromHTML(strings.NewReader(`<p>no scripts</p>`), "")
	assert.ErrorIs(t, err, scriptconfig.ErrScriptNotFound)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data-api-host: https://api.example.com
data-domains:
  refer: go.example.com
  outbound: [example.com, other.com]
data-attribution-model: first-click
data-cookie-options:
  expiresInDays: 30
`), 0o600))

	attrs, err := scriptconfig.LoadYAML(path)
	require.NoError(t, err)

	cfg, diags := scriptconfig.Resolve(attrs, "localhost", now)
	assert.Empty(t, diags)
	assert.Equal(t, "https://api.example.com", cfg.APIHost)
	assert.Equal(t, []string{"example.com", "other.com"}, cfg.OutboundDomains.List())
	assert.Equal(t, scriptconfig.FirstClick, cfg.AttributionModel)
	assert.Equal(t, now.Add(30*24*time.Hour), cfg.Cookie.Expires)

	_, err = scriptconfig.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolver(t *testing.T) {
	t.Parallel()

	r := scriptconfig.NewResolver(
		scriptconfig.Map{"data-domains": "not json", "data-short-domain": "go.example.com"},
		scriptconfig.WithClock(func() time.Time { return now }),
	)
	cfg := r.Resolve(context.Background(), "www.shop.com")
	assert.Equal(t, "go.example.com", cfg.ReferDomain)
	assert.Equal(t, ".shop.com", cfg.Cookie.Domain)
	assert.Equal(t, now.Add(scriptconfig.DefaultCookieExpires), cfg.Cookie.Expires)
}

func TestResolver_Cache(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	clock := now
	r := scriptconfig.NewResolver(
		scriptconfig.Map{scriptconfig.AttrShortDomain: "go.example.com"},
		scriptconfig.WithCache(8, time.Minute),
		scriptconfig.WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock
		}),
	)

	first := r.Resolve(context.Background(), "shop.com")

	mu.Lock()
	clock = clock.Add(30 * time.Second)
	mu.Unlock()
	assert.Equal(t, first.Cookie.Expires, r.Resolve(context.Background(), "SHOP.com").Cookie.Expires)

	mu.Lock()
	clock = clock.Add(time.Minute)
	mu.Unlock()
	assert.Equal(t, now.Add(90*time.Second).Add(scriptconfig.DefaultCookieExpires), r.Resolve(context.Background(), "shop.com").Cookie.Expires)
}
