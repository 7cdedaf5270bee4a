package attribution_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/attribution"
	"github.com/dmitrymomot/attribution/pkg/cookie"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeAPI records calls. When release is set TrackClick blocks until it is
// closed.
type fakeAPI struct {
	mu        sync.Mutex
	clicks    []trackapi.ClickRequest
	visits    []trackapi.VisitRequest
	leads     []trackapi.Event
	sales     []trackapi.Event
	clickResp *trackapi.ClickResponse
	clickErr  error
	visitID   string
	visitErr  error
	release   chan struct{}
}

func (f *fakeAPI) TrackClick(ctx context.Context, req trackapi.ClickRequest) (*trackapi.ClickResponse, error) {
	f.mu.Lock()
	f.clicks = append(f.clicks, req)
	resp, err, release := f.clickResp, f.clickErr, f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &trackapi.ClickResponse{ClickID: "click-" + req.Key}
	}
	return resp, nil
}

func (f *fakeAPI) TrackVisit(ctx context.Context, req trackapi.VisitRequest) (*trackapi.VisitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, req)
	if f.visitErr != nil {
		return nil, f.visitErr
	}
	return &trackapi.VisitResponse{ClickID: f.visitID}, nil
}

func (f *fakeAPI) TrackLead(ctx context.Context, ev trackapi.Event) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, ev)
	return json.RawMessage(`{"lead":true}`), nil
}

func (f *fakeAPI) TrackSale(ctx context.Context, ev trackapi.Event) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, ev)
	return json.RawMessage(`{"sale":true}`), nil
}

func (f *fakeAPI) clickCalls() []trackapi.ClickRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackapi.ClickRequest(nil), f.clicks...)
}

func (f *fakeAPI) visitCalls() []trackapi.VisitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackapi.VisitRequest(nil), f.visits...)
}

func (f *fakeAPI) leadCalls() []trackapi.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackapi.Event(nil), f.leads...)
}

func (f *fakeAPI) saleCalls() []trackapi.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackapi.Event(nil), f.sales...)
}

func resolve(t *testing.T, host string, attrs scriptconfig.Map) scriptconfig.Config {
	t.Helper()
	cfg, diags := scriptconfig.Resolve(attrs, host, now)
	require.Empty(t, diags)
	return cfg
}

func page(t *testing.T, rawURL string) *attribution.StaticPage {
	t.Helper()
	p, err := attribution.NewPage(rawURL, "https://twitter.com/")
	require.NoError(t, err)
	return p
}

func jar(host string) *cookie.MemoryJar {
	return cookie.NewMemoryJar(host, cookie.WithClock(func() time.Time { return now }))
}

func await(t *testing.T, inst *attribution.Instance) attribution.Outcome {
	t.Helper()
	out, err := inst.Init(context.Background()).AwaitWithTimeout(time.Second)
	require.NoError(t, err)
	return out
}
