package outbound_test

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/dom"
	"github.com/dmitrymomot/attribution/pkg/domainmatch"
	"github.com/dmitrymomot/attribution/pkg/navigation"
	"github.com/dmitrymomot/attribution/pkg/outbound"
)

func static(id string) func() string {
	return func() string { return id }
}

func parse(t *testing.T, html string, page string) *dom.Document {
	t.Helper()
	u, err := url.Parse(page)
	require.NoError(t, err)
	doc, err := dom.ParseString(html, dom.WithBaseURL(u))
	require.NoError(t, err)
	return doc
}

func hrefs(doc *dom.Document) []string {
	var out []string
	for _, l := range doc.Links() {
		v, _ := l.Attr("href")
		out = append(out, v)
	}
	return out
}

func TestDecorate_OutboundDomains(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body>
		<a href="https://example.com/pricing?plan=pro#top">example</a>
		<a href="https://www.other.com/">other</a>
		<a href="https://unrelated.com/">unrelated</a>
	</body></html>`, "https://shop.com/")

	d := outbound.New(domainmatch.ParsePatterns("example.com,other.com"), "shop.com", static("abc"))
	res := d.Decorate(doc)

	assert.Equal(t, 2, res.Decorated)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{
		"https://example.com/pricing?plan=pro&dub_id=abc#top",
		"https://www.other.com/?dub_id=abc",
		"https://unrelated.com/",
	}, hrefs(doc))
}

func TestDecorate_Idempotent(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><a href="https://example.com/x">x</a></body></html>`, "https://shop.com/")
	patterns := domainmatch.ParsePatterns("example.com")

	d := outbound.New(patterns, "shop.com", static("abc"))
	assert.Equal(t, 1, d.Decorate(doc).Decorated)
	assert.Equal(t, 0, d.Decorate(doc).Decorated)

	fresh := outbound.New(patterns, "shop.com", static("abc"))
	res := fresh.Decorate(doc)
	assert.Equal(t, 0, res.Decorated)
	assert.Equal(t, 1, res.Skipped)

	href := hrefs(doc)[0]
	assert.Equal(t, 1, strings.Count(href, "dub_id="))
}

func TestDecorate_SkipsExistingParam(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body>
		<a href="https://example.com/?dub_id=kept">kept</a>
		<a href="https://example.com/?dub_id=&x=1">empty</a>
		<a href="https://example.com/?dub_id">bare</a>
	</body></html>`, "https://shop.com/")

	res := outbound.New(domainmatch.ParsePatterns("example.com"), "shop.com", static("abc")).Decorate(doc)
	assert.Equal(t, 2, res.Decorated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{
		"https://example.com/?dub_id=kept",
		"https://example.com/?x=1&dub_id=abc",
		"https://example.com/?dub_id=abc",
	}, hrefs(doc))
}

func TestDecorate_NeverSameSite(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body>
		<a href="https://localhost/about">about</a>
		<a href="/relative">relative</a>
	</body></html>`, "https://localhost/")

	res := outbound.New(domainmatch.ParsePatterns("localhost,example.com"), "localhost", static("abc")).Decorate(doc)
	assert.Zero(t, res.Decorated)
	assert.Equal(t, []string{"https://localhost/about", "/relative"}, hrefs(doc))

	wild := parse(t, `<html><body><a href="https://www.shop.com/">home</a><a href="https://blog.shop.com/">blog</a></body></html>`, "https://shop.com/")
	res = outbound.New(domainmatch.ParsePatterns("*.shop.com"), "www.shop.com", static("abc")).Decorate(wild)
	assert.Equal(t, 1, res.Decorated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"https://www.shop.com/", "https://blog.shop.com/?dub_id=abc"}, hrefs(wild))
}

func TestDecorate_WithoutClickIDDoesNothing(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><a href="https://example.com/">x</a></body></html>`, "https://shop.com/")
	before := doc.String()

	res := outbound.New(domainmatch.ParsePatterns("example.com"), "shop.com", static("")).Decorate(doc)
	assert.Equal(t, outbound.Result{}, res)
	assert.Equal(t, before, doc.String())

	assert.Equal(t, outbound.Result{}, outbound.New(domainmatch.Patterns{}, "shop.com", static("abc")).Decorate(doc))
}

func TestDecorate_IframesAndSrcdoc(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body>
		<iframe src="https://app.example.com/embed"></iframe>
		<iframe srcdoc="<a href='https://example.com/nested'>n</a><iframe src='https://example.com/deep'></iframe>"></iframe>
		<iframe sandbox="allow-scripts" srcdoc="<a href='https://example.com/blocked'>b</a>"></iframe>
		<a href="mailto:sales@example.com">mail</a>
		<a href="http://[::1">broken</a>
	</body></html>`, "https://shop.com/")

	res := outbound.New(domainmatch.ParsePatterns("*.example.com"), "shop.com", static("abc")).Decorate(doc)
	assert.Equal(t, 3, res.Decorated)
	require.Len(t, res.Errors, 2, "cross-origin frame and malformed URL are reported, not fatal")

	iframes := doc.Iframes()
	src, _ := iframes[0].Attr("src")
	assert.Equal(t, "https://app.example.com/embed?dub_id=abc", src)

	srcdoc, _ := iframes[1].Attr("srcdoc")
	assert.Contains(t, srcdoc, "https://example.com/nested?dub_id=abc")
	assert.Contains(t, srcdoc, "https://example.com/deep?dub_id=abc")

	blocked, _ := iframes[2].Attr("srcdoc")
	assert.NotContains(t, blocked, "dub_id")
}

func TestDecorate_CustomParamAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := outbound.NewMetrics(reg)
	doc := parse(t, `<html><body><a href="https://example.com/">x</a><a href="https://example.com/?ref=1">y</a></body></html>`, "https://shop.com/")

	d := outbound.New(domainmatch.ParsePatterns("example.com"), "shop.com", static("abc"),
		outbound.WithParam("ref"),
		outbound.WithMetrics(metrics),
	)
	res := d.Decorate(doc)
	assert.Equal(t, 1, res.Decorated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "https://example.com/?ref=abc", hrefs(doc)[0])
	assert.Equal(t, 3, testutil.CollectAndCount(reg, "attribution_outbound_elements_total"))
}

func TestRun_RescansDynamicLinksAndNavigation(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body></body></html>`, "https://shop.com/")
	start, _ := url.Parse("https://shop.com/")
	history := navigation.NewHistory(start)

	var id atomic.Value
	id.Store("")
	d := outbound.New(domainmatch.ParsePatterns("example.com"), "shop.com", func() string { return id.Load().(string) },
		outbound.WithInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, doc, history) }()

	_, err := doc.AppendLink("https://example.com/late", "late")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"https://example.com/late"}, hrefs(doc), "no click id, no work")

	id.Store("abc")
	require.Eventually(t, func() bool {
		return hrefs(doc)[0] == "https://example.com/late?dub_id=abc"
	}, time.Second, 5*time.Millisecond)

	_, err = doc.AppendLink("https://example.com/spa", "spa")
	require.NoError(t, err)
	require.NoError(t, history.PushState("/next"))
	require.Eventually(t, func() bool {
		return hrefs(doc)[1] == "https://example.com/spa?dub_id=abc"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
