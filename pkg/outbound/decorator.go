package outbound

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/attribution/pkg/dom"
	"github.com/dmitrymomot/attribution/pkg/domainmatch"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/navigation"
)

// Result summarizes one decoration pass. Skipped counts matching elements
// left unchanged because they point at the page's own site or already carry
// the parameter.
type Result struct {
	Decorated int
	Skipped   int
	Errors    []error
}

func (r *Result) add(o Result) {
	r.Decorated += o.Decorated
	r.Skipped += o.Skipped
	r.Errors = append(r.Errors, o.Errors...)
}

// Decorator appends the click id to outbound links.
type Decorator struct {
	patterns domainmatch.Patterns
	pageHost string
	clickID  func() string
	param    string
	interval time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	mu        sync.Mutex
	processed map[processedKey]struct{}
}

// processedKey is an element as it was seen with a given URL. A changed URL
// makes the element eligible again.
type processedKey struct {
	el  dom.Element
	url string
}

// New creates a decorator for a page served from pageHost. clickID is read
// at the start of every pass; an empty id makes the pass a no-op.
func New(patterns domainmatch.Patterns, pageHost string, clickID func() string, opts ...Option) *Decorator {
	d := &Decorator{
		patterns:  patterns.Without(pageHost),
		pageHost:  pageHost,
		clickID:   clickID,
		param:     DefaultParam,
		interval:  DefaultInterval,
		logger:    logger.Discard(),
		processed: make(map[processedKey]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decorate runs one pass over doc and its srcdoc frames.
func (d *Decorator) Decorate(doc *dom.Document) Result {
	if d.clickID == nil || d.patterns.Len() == 0 {
		return Result{}
	}
	id := d.clickID()
	if id == "" {
		return Result{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	res := d.decorateDocument(doc, id)
	d.metrics.observe(res)
	return res
}

func (d *Decorator) decorateDocument(doc *dom.Document, id string) Result {
	var res Result
	for _, el := range doc.Links() {
		d.decorateElement(doc, el, "href", id, &res)
	}
	for _, el := range doc.Iframes() {
		d.decorateElement(doc, el, "src", id, &res)
	}

	frames, errs := doc.SrcdocDocuments()
	res.Errors = append(res.Errors, errs...)
	for _, frame := range frames {
		sub := d.decorateDocument(frame, id)
		if sub.Decorated > 0 {
			if err := frame.Commit(); err != nil {
				sub.Errors = append(sub.Errors, fmt.Errorf("%w: %w", ErrCommitFailed, err))
			}
		}
		res.add(sub)
	}
	return res
}

func (d *Decorator) decorateElement(doc *dom.Document, el dom.Element, attr, id string, res *Result) {
	raw, ok := el.Attr(attr)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	key := processedKey{el: el, url: raw}
	if _, done := d.processed[key]; done {
		return
	}
	d.processed[key] = struct{}{}

	u, err := doc.Resolve(raw)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("%w: %s %q: %w", ErrInvalidURL, el.Tag(), raw, err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	if _, ok := d.patterns.MatchHost(u.Hostname()); !ok {
		return
	}
	if domainmatch.SameSite(u.String(), d.pageHost) || u.Query().Get(d.param) != "" {
		res.Skipped++
		return
	}

	setParam(u, d.param, id)
	decorated := u.String()
	el.SetAttr(attr, decorated)
	d.processed[processedKey{el: el, url: decorated}] = struct{}{}
	res.Decorated++
}

// Run decorates doc now, on every tick and after every navigation event of
// nav, until ctx is done. nav may be nil.
func (d *Decorator) Run(ctx context.Context, doc *dom.Document, nav navigation.Source) error {
	wake := make(chan struct{}, 1)
	if nav != nil {
		unsubscribe := nav.Subscribe(func(navigation.Event) {
			select {
			case wake <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.pass(ctx, doc)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.pass(ctx, doc)
		case <-wake:
			d.pass(ctx, doc)
		}
	}
}

func (d *Decorator) pass(ctx context.Context, doc *dom.Document) {
	res := d.Decorate(doc)
	if res.Decorated > 0 {
		d.logger.DebugContext(ctx, "outbound links decorated", logger.Count("decorated", res.Decorated))
	}
	if len(res.Errors) > 0 {
		d.logger.DebugContext(ctx, "outbound elements skipped on error", logger.Errors(res.Errors...))
	}
}

// setParam sets name=value in u's query, replacing existing occurrences and
// keeping every other pair as written.
func setParam(u *url.URL, name, value string) {
	pairs := make([]string, 0)
	if u.RawQuery != "" {
		for pair := range strings.SplitSeq(u.RawQuery, "&") {
			key, _, _ := strings.Cut(pair, "=")
			if k, err := url.QueryUnescape(key); err == nil && k == name {
				continue
			}
			pairs = append(pairs, pair)
		}
	}
	pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(value))
	u.RawQuery = strings.Join(pairs, "&")
	u.ForceQuery = false
}
