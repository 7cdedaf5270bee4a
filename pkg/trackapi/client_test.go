package trackapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

func TestClient_TrackClick(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/track/click", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"domain":   "dub.sh",
			"key":      "derek",
			"url":      "https://shop.com/?via=derek",
			"referrer": "https://twitter.com/",
		}, body)

		_, _ = w.Write([]byte(`{"clickId":"abc","partner":{"id":"pn_1","name":"Derek Forbes","image":"https://img.dub.co/derek.png"},"discount":{"id":"d_1","amount":30,"type":"percentage","maxDuration":null}}`))
	}))
	defer server.Close()

	client := trackapi.New(server.URL + "/")
	resp, err := client.TrackClick(context.Background(), trackapi.ClickRequest{
		Domain:   "dub.sh",
		Key:      "derek",
		URL:      "https://shop.com/?via=derek",
		Referrer: "https://twitter.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.ClickID)
	require.NotNil(t, resp.Partner)
	assert.Equal(t, "Derek Forbes", resp.Partner.Name)
	require.NotNil(t, resp.Discount)
	assert.Equal(t, float64(30), resp.Discount.Amount)
	assert.Nil(t, resp.Discount.MaxDuration)
}

func TestClient_TrackClick_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"not found", http.StatusNotFound, `{"error":{"message":"Link not found"}}`, trackapi.ErrUnexpectedStatus, "Link not found"},
		{"string error", http.StatusBadRequest, `{"error":"bad domain"}`, trackapi.ErrUnexpectedStatus, "bad domain"},
		{"plain body", http.StatusInternalServerError, "oops\n", trackapi.ErrUnexpectedStatus, "oops"},
		{"missing click id", http.StatusOK, `{}`, trackapi.ErrInvalidResponse, ""},
		{"invalid json", http.StatusOK, `{"clickId":`, trackapi.ErrInvalidResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := trackapi.New(server.URL).TrackClick(context.Background(), trackapi.ClickRequest{Domain: "dub.sh", Key: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var apiErr *trackapi.APIError
			if errors.As(err, &apiErr) {
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Equal(t, "/track/click", apiErr.Endpoint)
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := trackapi.New(url).TrackVisit(context.Background(), trackapi.VisitRequest{Domain: "site.dub.sh"})
	assert.ErrorIs(t, err, trackapi.ErrRequestFailed)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := trackapi.New(server.URL, trackapi.WithTimeout(20*time.Millisecond)).
		TrackVisit(context.Background(), trackapi.VisitRequest{Domain: "site.dub.sh"})
	assert.ErrorIs(t, err, trackapi.ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_TrackVisit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/track/visit", r.URL.Path)
		assert.Equal(t, "203.0.113.7", r.Header.Get("X-Forwarded-For"))
		assert.Equal(t, "Mozilla/5.0 test", r.Header.Get("User-Agent"))

		var body trackapi.VisitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "site.dub.sh", body.Domain)

		_, _ = w.Write([]byte(`{"clickId":"visit-1"}`))
	}))
	defer server.Close()

	ctx := trackapi.WithVisitor(context.Background(), trackapi.Visitor{IP: "203.0.113.7", UserAgent: "Mozilla/5.0 test"})
	resp, err := trackapi.New(server.URL).TrackVisit(ctx, trackapi.VisitRequest{Domain: "site.dub.sh", URL: "https://shop.com/"})
	require.NoError(t, err)
	assert.Equal(t, "visit-1", resp.ClickID)
}

func TestClient_Conversions(t *testing.T) {
	t.Parallel()

	type captured struct {
		path, auth string
		body       map[string]any
	}
	requests := make(chan captured, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &c.body)
		requests <- c
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	t.Run("secret key uses server endpoints", func(t *testing.T) {
		client := trackapi.New(server.URL, trackapi.WithSecretKey("dub_sk"), trackapi.WithPublishableKey("dub_pk"))
		raw, err := client.TrackLead(context.Background(), trackapi.Event{"clickId": "abc", "eventName": "Sign up"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
		got := <-requests
		assert.Equal(t, "/track/lead", got.path)
		assert.Equal(t, "Bearer dub_sk", got.auth)
		assert.Equal(t, "Sign up", got.body["eventName"])
	})

	t.Run("publishable key uses client endpoints", func(t *testing.T) {
		client := trackapi.New(server.URL, trackapi.WithPublishableKey("dub_pk"))
		_, err := client.TrackSale(context.Background(), trackapi.Event{"amount": 1000})
		require.NoError(t, err)
		got := <-requests
		assert.Equal(t, "/track/sale/client", got.path)
		assert.Equal(t, "Bearer dub_pk", got.auth)
	})

	t.Run("no key fails before the request", func(t *testing.T) {
		_, err := trackapi.New(server.URL).TrackLead(context.Background(), trackapi.Event{})
		assert.ErrorIs(t, err, trackapi.ErrMissingKey)
		assert.Empty(t, requests)
	})
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"clickId":"abc"}`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	client := trackapi.New(server.URL, trackapi.WithMetrics(reg))

	_, err := client.TrackClick(context.Background(), trackapi.ClickRequest{Domain: "dub.sh", Key: "a"})
	require.NoError(t, err)

	status.Store(http.StatusTooManyRequests)
	_, err = client.TrackClick(context.Background(), trackapi.ClickRequest{Domain: "dub.sh", Key: "a"})
	require.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "attribution_track_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "attribution_track_request_duration_seconds"))
}

func TestClient_ResponseSize(t *testing.T) {
	t.Parallel()

	var size atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pad := strings.Repeat("x", int(size.Load()))
		_, _ = w.Write([]byte(`{"pad":"` + pad + `"}`))
	}))
	defer server.Close()
	client := trackapi.New(server.URL, trackapi.WithSecretKey("dub_sk"))

	size.Store(200 * 1024)
	raw, err := client.TrackLead(context.Background(), trackapi.Event{"clickId": "abc"})
	require.NoError(t, err)
	assert.True(t, json.Valid(raw), "bodies above the error limit are returned whole")
	assert.Len(t, raw, 200*1024+len(`{"pad":""}`))

	size.Store(5 << 20)
	_, err = client.TrackSale(context.Background(), trackapi.Event{"clickId": "abc"})
	assert.ErrorIs(t, err, trackapi.ErrResponseTooLarge)
}
