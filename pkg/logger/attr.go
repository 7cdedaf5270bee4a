package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
func Errors(errs ...error) slog.Attr {
	vals := make([]any, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			vals = append(vals, err.Error())
		}
	}
	if len(vals) == 0 {
		return slog.Attr{}
	}
	return slog.Any("errors", vals)
}

// ClickID records an attribution identifier under the key "click_id".
func ClickID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("click_id", id)
}

// Domain records a short or site domain under the key "domain".
func Domain(domain string) slog.Attr {
	return slog.String("domain", domain)
}

// Endpoint records a tracking API endpoint under the key "endpoint".
func Endpoint(path string) slog.Attr {
	return slog.String("endpoint", path)
}

// URL records a page or link URL under the key "url".
func URL(u string) slog.Attr {
	return slog.String("url", u)
}

// State records an attribution state name under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Count(name string, n int) slog.Attr {
	return slog.Int(name, n)
}
