package trackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/attribution/pkg/logger"
)

const (
	maxErrorBody    = 64 * 1024
	maxResponseBody = 4 << 20
)

// Client calls the tracking API. The zero value is not usable; use New.
type Client struct {
	host           string
	http           *http.Client
	timeout        time.Duration
	publishableKey string
	secretKey      string
	userAgent      string
	logger         *slog.Logger
	metrics        *metrics
}

// New creates a client for the API at host, e.g. "https://api.dub.co".
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:      strings.TrimRight(host, "/"),
		http:      &http.Client{},
		timeout:   5 * time.Second,
		userAgent: "attribution-go/1.0",
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the API host the client talks to.
func (c *Client) Host() string { return c.host }

// TrackClick resolves a referral key into a click id.
func (c *Client) TrackClick(ctx context.Context, req ClickRequest) (*ClickResponse, error) {
	var resp ClickResponse
	if err := c.post(ctx, PathClick, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.ClickID == "" {
		return nil, fmt.Errorf("%w: %s response has no clickId", ErrInvalidResponse, PathClick)
	}
	return &resp, nil
}

// TrackVisit records a site visit and returns the click id issued for it.
func (c *Client) TrackVisit(ctx context.Context, req VisitRequest) (*VisitResponse, error) {
	var resp VisitResponse
	if err := c.post(ctx, PathVisit, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.ClickID == "" {
		return nil, fmt.Errorf("%w: %s response has no clickId", ErrInvalidResponse, PathVisit)
	}
	return &resp, nil
}

// TrackLead records a lead event and returns the raw API response.
func (c *Client) TrackLead(ctx context.Context, ev Event) (json.RawMessage, error) {
	return c.conversion(ctx, PathLead, PathLeadClient, ev)
}

// TrackSale records a sale event and returns the raw API response.
func (c *Client) TrackSale(ctx context.Context, ev Event) (json.RawMessage, error) {
	return c.conversion(ctx, PathSale, PathSaleClient, ev)
}

func (c *Client) conversion(ctx context.Context, serverPath, clientPath string, ev Event) (json.RawMessage, error) {
	path, key := serverPath, c.secretKey
	if key == "" {
		path, key = clientPath, c.publishableKey
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s needs a secret or publishable key", ErrMissingKey, serverPath)
	}

	var raw json.RawMessage
	if err := c.post(ctx, path, key, ev, &raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path, bearer string, body, dest any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.observe(path, started, err)
		if err != nil {
			c.logger.DebugContext(ctx, "tracking request failed",
				logger.Endpoint(path),
				logger.Duration(time.Since(started)),
				logger.Error(err),
			)
		}
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if v, ok := VisitorFromContext(ctx); ok {
		if v.IP != "" {
			req.Header.Set("X-Forwarded-For", v.IP)
		}
		if v.UserAgent != "" {
			req.Header.Set("User-Agent", v.UserAgent)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	if len(data) > maxResponseBody {
		return fmt.Errorf("%w: %s body exceeds %d bytes", ErrResponseTooLarge, path, maxResponseBody)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := dest.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Join(ErrInvalidResponse, err)
	}
	return nil
}

// errorMessage extracts {"error":{"message":...}} or {"error":"..."} bodies,
// falling back to a truncated single-line body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var detailed struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detailed) == nil && detailed.Message != "" {
			return detailed.Message
		}
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
	}

	msg := strings.TrimSpace(strings.ReplaceAll(string(body), "\n", " "))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
