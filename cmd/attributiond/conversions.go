package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/attribution/pkg/conversion"
	"github.com/dmitrymomot/attribution/pkg/ratelimiter"
	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

const maxConversionBody = 64 << 10

type convertFunc func(ctx context.Context, r *http.Request, props conversion.Properties) (json.RawMessage, error)

// mountConversions exposes server-side lead and sale tracking to the
// upstream application, which calls back through the proxy with the
// visitor's cookies and the shared conversion token.
func mountConversions(r chi.Router, api conversion.API, secretKey, token string, lim *ratelimiter.Limiter, log *slog.Logger) {
	tracker := conversion.New(api, secretKey, conversion.WithLogger(log))

	r.Route("/_attribution", func(r chi.Router) {
		r.Use(
			ratelimiter.Middleware(lim, ratelimiter.ClientIP, log),
			requireToken(token, log),
		)
		r.Post("/lead", conversionHandler(tracker.Lead))
		r.Post("/sale", conversionHandler(tracker.Sale))
	})
}

// requireToken rejects requests whose "Authorization: Bearer" credential is
// not token.
func requireToken(token string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.WarnContext(r.Context(), "conversion request rejected", slog.Bool("credential", ok))
				w.Header().Set("WWW-Authenticate", `Bearer realm="attribution"`)
				writeError(w, http.StatusUnauthorized, "conversion token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func conversionHandler(convert convertFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var props conversion.Properties
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConversionBody))
		dec.UseNumber()
		if err := dec.Decode(&props); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		res, err := convert(r.Context(), r, props)
		if err != nil {
			status, msg := conversionStatus(err)
			writeError(w, status, msg)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if len(res) == 0 {
			res = json.RawMessage(`{}`)
		}
		_, _ = w.Write(res)
	}
}

func conversionStatus(err error) (int, string) {
	var apiErr *trackapi.APIError
	switch {
	case errors.Is(err, conversion.ErrMissingClickID):
		return http.StatusUnprocessableEntity, "no click id cookie on request"
	case errors.Is(err, conversion.ErrInvalidProperty):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, apiErr.Message
	default:
		return http.StatusBadGateway, "tracking API unavailable"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
