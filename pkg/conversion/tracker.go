package conversion

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/attribution/pkg/clientip"
	"github.com/dmitrymomot/attribution/pkg/environment"
	"github.com/dmitrymomot/attribution/pkg/logger"
	"github.com/dmitrymomot/attribution/pkg/scriptconfig"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

// API is the part of the tracking client used for conversions.
type API interface {
	TrackLead(ctx context.Context, ev trackapi.Event) (json.RawMessage, error)
	TrackSale(ctx context.Context, ev trackapi.Event) (json.RawMessage, error)
}

// Tracker reports leads and sales from the server, attributing them to the
// click id cookie the browser sent with the request.
type Tracker struct {
	api       API
	secretKey string
	cookie    string
	logger    *slog.Logger
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCookieName overrides the cookie the click id is read from.
func WithCookieName(name string) Option {
	return func(t *Tracker) {
		if name != "" {
			t.cookie = name
		}
	}
}

// New returns a Tracker. The secret key must be the one api authenticates
// with; conversions are refused without it.
func New(api API, secretKey string, opts ...Option) *Tracker {
	t := &Tracker{
		api:       api,
		secretKey: secretKey,
		cookie:    scriptconfig.ClickIDCookie,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ClickID returns the click id cookie value carried by r.
func (t *Tracker) ClickID(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.cookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Lead tracks a lead for the visitor that sent r.
func (t *Tracker) Lead(ctx context.Context, r *http.Request, props Properties) (json.RawMessage, error) {
	return t.track(ctx, r, "lead", props, t.api.TrackLead)
}

// Sale tracks a sale for the visitor that sent r.
func (t *Tracker) Sale(ctx context.Context, r *http.Request, props Properties) (json.RawMessage, error) {
	return t.track(ctx, r, "sale", props, t.api.TrackSale)
}

func (t *Tracker) track(
	ctx context.Context,
	r *http.Request,
	kind string,
	props Properties,
	send func(context.Context, trackapi.Event) (json.RawMessage, error),
) (json.RawMessage, error) {
	log := t.logger.With(logger.Component("conversion"), slog.String("kind", kind))

	if t.secretKey == "" {
		log.ErrorContext(ctx, "conversion not sent", logger.Error(ErrMissingSecretKey))
		return nil, ErrMissingSecretKey
	}

	clickID, ok := t.ClickID(r)
	if !ok {
		log.ErrorContext(ctx, "conversion not sent", logger.Error(ErrMissingClickID))
		return nil, ErrMissingClickID
	}

	clean, dropped := sanitize(props)
	if len(dropped) > 0 {
		err := invalidKeys(dropped)
		if !environment.IsProduction(ctx) {
			log.ErrorContext(ctx, "conversion not sent", logger.Error(err))
			return nil, err
		}
		log.WarnContext(ctx, "dropped non-scalar properties", logger.Error(err))
	}

	ev := trackapi.Event(clean)
	ev["clickId"] = clickID

	res, err := send(trackapi.WithVisitor(ctx, visitor(r)), ev)
	if err != nil {
		log.ErrorContext(ctx, "conversion failed", logger.ClickID(clickID), logger.Error(err))
		return nil, err
	}
	log.DebugContext(ctx, "conversion tracked", logger.ClickID(clickID))
	return res, nil
}

func visitor(r *http.Request) trackapi.Visitor {
	ip := clientip.FromContext(r.Context())
	if ip == "" {
		ip = clientip.FromRequest(r)
	}
	return trackapi.Visitor{IP: ip, UserAgent: r.UserAgent()}
}
