package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/attribution/pkg/async"
	"github.com/dmitrymomot/attribution/pkg/cookie"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/navigation"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
	"github.com/dmitrymomot/attribution/pkg/statemachine"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

// API is the subset of the tracking API an Instance calls.
type API interface {
	TrackClick(ctx context.Context, req trackapi.ClickRequest) (*trackapi.ClickResponse, error)
	TrackVisit(ctx context.Context, req trackapi.VisitRequest) (*trackapi.VisitResponse, error)
	TrackLead(ctx context.Context, ev trackapi.Event) (json.RawMessage, error)
	TrackSale(ctx context.Context, ev trackapi.Event) (json.RawMessage, error)
}

// Outcome describes where a resolution left the page load. Err is set when
// the resolution was skipped or the tracking API failed; the cookie is left
// untouched in that case.
type Outcome struct {
	State   State
	ClickID string
	Err     error
}

// Instance is the attribution state of one page load.
type Instance struct {
	cfg    scriptconfig.Config
	page   Page
	store  *cookie.Store
	api    API
	logger *slog.Logger

	// mu guards current and taskCtx, and serializes the policy check with
	// the cookie write.
	mu      sync.Mutex
	current *url.URL
	taskCtx context.Context

	machine *statemachine.Machine

	clickTracked atomic.Bool
	visitTracked atomic.Bool

	initOnce sync.Once
	init     *async.Future[Outcome]

	queued []Task
	tasks  *async.Deferred[Task]
	ready  readySignal
}

// New creates the instance of a page load. Nothing happens until Init.
func New(cfg scriptconfig.Config, page Page, jar cookie.Jar, api API, opts ...Option) *Instance {
	i := &Instance{
		cfg:     cfg,
		page:    page,
		store:   cookie.NewStore(jar, cfg.CookieOptions()...),
		api:     api,
		logger:  logger.Discard(),
		taskCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With(logger.Component("attribution"))
	i.tasks = async.NewDeferred(i.queued...)
	i.queued = nil

	i.current = &url.URL{}
	if page != nil {
		i.current = page.URL()
	}
	i.machine = newMachine(i.hasClickID)
	return i
}

// Init resolves the identity of the page load. Only the first call does
// work; later calls return the same future. A click id in the URL is stored
// before Init returns. Ready callbacks fire before the future completes;
// queued tasks are started in the background and never hold it up.
func (i *Instance) Init(ctx context.Context) *async.Future[Outcome] {
	i.initOnce.Do(func() {
		i.mu.Lock()
		i.taskCtx = context.WithoutCancel(ctx)
		i.mu.Unlock()
		i.init = i.start(ctx)
	})
	return i.init
}

func (i *Instance) start(ctx context.Context) *async.Future[Outcome] {
	if i.hasClickID() {
		i.fire(ctx, triggerCookieFound)
	}

	u := i.currentURL()
	if out, ok := i.direct(ctx, u); ok {
		return i.finish(ctx, async.Resolved(out, nil))
	}
	if key := strings.TrimSpace(u.Query().Get(i.cfg.QueryParam)); key != "" && i.cfg.ReferDomain != "" {
		return i.finish(ctx, i.referral(ctx, key))
	}
	if i.cfg.SiteDomain != "" {
		return i.finish(ctx, i.siteVisit(ctx))
	}
	return i.finish(ctx, async.Resolved(i.outcome(nil), nil))
}

// finish completes initialization once f has resolved.
func (i *Instance) finish(ctx context.Context, f *async.Future[Outcome]) *async.Future[Outcome] {
	settle := func(ctx context.Context) (Outcome, error) {
		out, err := f.Await()
		if err != nil {
			out = i.outcome(err)
		}
		i.complete(ctx, out)
		return out, nil
	}
	if f.IsComplete() {
		out, _ := settle(ctx)
		return async.Resolved(out, nil)
	}
	return async.Go(context.WithoutCancel(ctx), settle)
}

func (i *Instance) complete(ctx context.Context, out Outcome) {
	if out.Err != nil {
		i.logger.DebugContext(ctx, "attribution resolved with error",
			logger.State(string(out.State)),
			logger.Error(out.Err),
		)
	}

	taskCtx := i.taskContext()
	if err := i.tasks.Start(func(t Task) { i.runTask(taskCtx, t) }); err != nil {
		i.logger.WarnContext(ctx, "task queue already drained", logger.Error(err))
	}

	rec, _ := i.PartnerData()
	i.ready.fire(rec)
	i.logger.DebugContext(ctx, "attribution ready",
		logger.State(string(i.State())),
		logger.ClickID(i.ClickID()),
	)
}

// Navigate records an in-page navigation to u and stores a click id carried
// in its query. Referral and site visit tracking are not repeated.
func (i *Instance) Navigate(ctx context.Context, u *url.URL) Outcome {
	if u == nil {
		return i.outcome(nil)
	}
	i.mu.Lock()
	i.current = i.current.ResolveReference(u)
	next := cloneURL(i.current)
	i.mu.Unlock()

	out, _ := i.direct(ctx, next)
	return out
}

// Subscribe calls Navigate for every event of src.
func (i *Instance) Subscribe(src navigation.Source) (unsubscribe func()) {
	return src.Subscribe(func(ev navigation.Event) {
		ctx := i.taskContext()
		i.logger.DebugContext(ctx, "navigation", slog.String("kind", ev.Kind.String()), logger.URL(urlString(ev.URL)))
		i.Navigate(ctx, ev.URL)
	})
}

// TrackClick resolves a referral key through the tracking API. It shares the
// once-per-page-load guard with the referral found in the page URL, and
// under first-click it does nothing when a click id is already stored.
func (i *Instance) TrackClick(ctx context.Context, key string) *async.Future[Outcome] {
	return i.referral(ctx, strings.TrimSpace(key))
}

// Enqueue runs t after initialization, in submission order, on a background
// goroutine. It never waits for the tracking API.
func (i *Instance) Enqueue(t Task) {
	i.tasks.Submit(t)
}

// TrackLead records a lead. The stored click id is attached unless ev
// already carries one.
func (i *Instance) TrackLead(ctx context.Context, ev trackapi.Event) (json.RawMessage, error) {
	payload := make(trackapi.Event, len(ev)+1)
	for k, v := range ev {
		payload[k] = v
	}
	if _, ok := payload["clickId"]; !ok {
		if id := i.ClickID(); id != "" {
			payload["clickId"] = id
		}
	}

	raw, err := i.api.TrackLead(ctx, payload)
	if err != nil {
		i.logger.ErrorContext(ctx, "trackLead failed", logger.Error(err))
	}
	return raw, err
}

// TrackSale records a sale.
func (i *Instance) TrackSale(ctx context.Context, ev trackapi.Event) (json.RawMessage, error) {
	raw, err := i.api.TrackSale(ctx, ev)
	if err != nil {
		i.logger.ErrorContext(ctx, "trackSale failed", logger.Error(err))
	}
	return raw, err
}

// OnReady registers fn to receive the partner record once resolution has
// completed. fn runs at most once. If resolution already completed it runs
// immediately.
func (i *Instance) OnReady(fn func(PartnerRecord)) {
	if fn != nil {
		i.ready.subscribe(fn)
	}
}

// Ready reports whether resolution has completed.
func (i *Instance) Ready() bool { return i.ready.isFired() }

// ClickID returns the stored click id, or "".
func (i *Instance) ClickID() string {
	id, _ := i.store.Get(scriptconfig.ClickIDCookie)
	return id
}

// PartnerData returns the decoded partner record of the stored click.
func (i *Instance) PartnerData() (PartnerRecord, bool) {
	var rec PartnerRecord
	if err := i.store.GetJSON(scriptconfig.PartnerDataCookie, &rec); err != nil {
		return PartnerRecord{}, false
	}
	return rec.decoded(), true
}

func (i *Instance) Config() scriptconfig.Config { return i.cfg }

// Cookies returns the cookie store the instance writes through.
func (i *Instance) Cookies() *cookie.Store { return i.store }

// State returns the identity state of the page load.
func (i *Instance) State() State {
	s, _ := i.machine.Current().(State)
	return s
}

// URL returns the current page URL, including in-page navigations.
func (i *Instance) URL() *url.URL { return i.currentURL() }

// direct stores the click id carried in u, if any.
func (i *Instance) direct(ctx context.Context, u *url.URL) (Outcome, bool) {
	id := strings.TrimSpace(u.Query().Get(scriptconfig.ClickIDCookie))
	if id == "" {
		return Outcome{}, false
	}
	if i.accept(ctx, id) {
		i.dropStalePartner(ctx, id)
		i.fire(ctx, triggerDirectID)
	}
	return i.outcome(nil), true
}

func (i *Instance) referral(ctx context.Context, key string) *async.Future[Outcome] {
	switch {
	case key == "":
		return async.Resolved(i.outcome(ErrEmptyKey), nil)
	case i.cfg.ReferDomain == "":
		return async.Resolved(i.outcome(ErrNoReferDomain), nil)
	case ctx.Err() != nil:
		return async.Resolved(i.outcome(ctx.Err()), nil)
	}

	if i.cfg.AttributionModel == FirstClick && i.hasClickID() {
		i.logger.DebugContext(ctx, "referral skipped: first click kept", logger.ClickID(i.ClickID()))
		return async.Resolved(i.outcome(nil), nil)
	}
	if !i.clickTracked.CompareAndSwap(false, true) {
		return async.Resolved(i.outcome(ErrClickAlreadyTracked), nil)
	}
	i.fire(ctx, triggerReferral)

	req := trackapi.ClickRequest{
		Domain:   i.cfg.ReferDomain,
		Key:      key,
		URL:      i.currentURL().String(),
		Referrer: i.referrer(),
	}
	return async.Go(ctx, func(ctx context.Context) (Outcome, error) {
		resp, err := i.api.TrackClick(ctx, req)
		if err != nil {
			i.logger.WarnContext(ctx, "click tracking failed",
				logger.Domain(req.Domain),
				slog.String("key", req.Key),
				logger.Error(err),
			)
			i.fire(ctx, triggerFailed)
			return i.outcome(err), nil
		}

		i.accept(ctx, resp.ClickID)
		if rec, ok := partnerRecord(resp); ok {
			i.storePartner(ctx, rec)
		} else {
			i.dropStalePartner(ctx, i.ClickID())
		}
		i.fire(ctx, triggerResolved)
		return i.outcome(nil), nil
	})
}

func (i *Instance) siteVisit(ctx context.Context) *async.Future[Outcome] {
	if i.hasClickID() || !i.visitTracked.CompareAndSwap(false, true) {
		return async.Resolved(i.outcome(nil), nil)
	}

	req := trackapi.VisitRequest{
		Domain:   i.cfg.SiteDomain,
		URL:      i.currentURL().String(),
		Referrer: i.referrer(),
	}
	return async.Go(ctx, func(ctx context.Context) (Outcome, error) {
		resp, err := i.api.TrackVisit(ctx, req)
		if err != nil {
			i.logger.WarnContext(ctx, "site visit tracking failed", logger.Domain(req.Domain), logger.Error(err))
			return i.outcome(err), nil
		}
		if i.accept(ctx, resp.ClickID) {
			i.dropStalePartner(ctx, resp.ClickID)
			i.fire(ctx, triggerSiteVisit)
		}
		return i.outcome(nil), nil
	})
}

func (i *Instance) runTask(ctx context.Context, t Task) {
	switch t.Kind {
	case TaskTrackClick:
		out, err := i.TrackClick(ctx, t.Key).Await()
		if err == nil {
			err = out.Err
		}
		t.done(nil, err)
	case TaskTrackLead:
		t.done(i.TrackLead(ctx, t.Event))
	case TaskTrackSale:
		t.done(i.TrackSale(ctx, t.Event))
	default:
		i.logger.WarnContext(ctx, "unknown queued task", slog.String("kind", string(t.Kind)))
		t.done(nil, ErrUnknownTask)
	}
}

// accept writes candidate when the attribution model allows it.
func (i *Instance) accept(ctx context.Context, candidate string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, _ := i.store.Get(scriptconfig.ClickIDCookie)
	if !ShouldAccept(candidate, existing, i.cfg.AttributionModel) {
		if candidate != existing {
			i.logger.DebugContext(ctx, "click id rejected by attribution model",
				logger.ClickID(candidate),
				slog.String("model", string(i.cfg.AttributionModel)),
			)
		}
		return false
	}
	if err := i.store.Set(scriptconfig.ClickIDCookie, candidate); err != nil {
		i.logger.WarnContext(ctx, "click id not stored", logger.Error(err))
		return false
	}
	i.logger.InfoContext(ctx, "click id stored", logger.ClickID(candidate))
	return true
}

// storePartner writes rec when it belongs to the stored click.
func (i *Instance) storePartner(ctx context.Context, rec PartnerRecord) {
	if rec.ClickID != i.ClickID() {
		return
	}
	if err := i.store.SetJSON(scriptconfig.PartnerDataCookie, rec); err != nil {
		i.logger.WarnContext(ctx, "partner data not stored", logger.Error(err))
	}
}

// dropStalePartner removes a partner record left by another click.
func (i *Instance) dropStalePartner(ctx context.Context, clickID string) {
	var rec PartnerRecord
	err := i.store.GetJSON(scriptconfig.PartnerDataCookie, &rec)
	if errors.Is(err, cookie.ErrCookieNotFound) || (err == nil && rec.ClickID == clickID) {
		return
	}
	if err := i.store.Delete(scriptconfig.PartnerDataCookie); err != nil {
		i.logger.WarnContext(ctx, "stale partner data not removed", logger.Error(err))
	}
}

func (i *Instance) fire(ctx context.Context, t trigger) {
	if _, err := i.machine.Fire(ctx, t); err != nil {
		i.logger.DebugContext(ctx, "state unchanged", logger.Error(err))
	}
}

func (i *Instance) outcome(err error) Outcome {
	return Outcome{State: i.State(), ClickID: i.ClickID(), Err: err}
}

func (i *Instance) hasClickID() bool {
	return i.ClickID() != ""
}

func (i *Instance) currentURL() *url.URL {
	i.mu.Lock()
	defer i.mu.Unlock()
	return cloneURL(i.current)
}

func (i *Instance) taskContext() context.Context {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.taskCtx
}

func (i *Instance) referrer() string {
	if i.page == nil {
		return ""
	}
	return i.page.Referrer()
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
