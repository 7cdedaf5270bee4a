package outbound

import (
	"bytes"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/attribution/pkg/dom"
	"github.com/dmitrymomot/attribution/pkg/domainmatch"
	"github.com/dmitrymomot/attribution/pkg/logger"
)

// Target describes the page an HTML response belongs to.
type Target struct {
	PageURL  *url.URL
	Patterns domainmatch.Patterns
	ClickID  string
}

// TargetFunc returns the decoration target of r. It is called after the
// wrapped handler has run, so it sees cookies written while serving r.
type TargetFunc func(r *http.Request) (Target, bool)

// maxDecoratedBody bounds the HTML responses that are buffered for
// decoration. Larger bodies are passed through.
const maxDecoratedBody = 4 << 20

// Middleware decorates outbound links in full HTML documents returned by the
// wrapped handler. Other responses, compressed bodies and partial HTML
// fragments are passed through unchanged.
func Middleware(target TargetFunc, opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bw := &bufferingWriter{ResponseWriter: w}
			next.ServeHTTP(bw, r)
			if !bw.buffering() {
				return
			}

			body := bw.buf.Bytes()
			if t, ok := target(r); ok && t.ClickID != "" && t.Patterns.Len() > 0 && isDocument(body) {
				body = decorate(r, body, t, opts)
			}

			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(bw.status)
			_, _ = w.Write(body)
		})
	}
}

func decorate(r *http.Request, body []byte, t Target, opts []Option) []byte {
	doc, err := dom.Parse(bytes.NewReader(body), dom.WithBaseURL(t.PageURL))
	if err != nil {
		return body
	}
	host := ""
	if t.PageURL != nil {
		host = t.PageURL.Hostname()
	}
	d := New(t.Patterns, host, func() string { return t.ClickID }, opts...)

	res := d.Decorate(doc)
	if len(res.Errors) > 0 {
		d.logger.DebugContext(r.Context(), "outbound elements skipped on error", logger.Errors(res.Errors...))
	}
	if res.Decorated == 0 {
		return body
	}
	var out bytes.Buffer
	if err := doc.Render(&out); err != nil {
		return body
	}
	return out.Bytes()
}

// isDocument reports whether body starts like a full HTML document.
func isDocument(body []byte) bool {
	head := body[:min(len(body), 1024)]
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

// bufferingWriter holds back 200 text/html responses so they can be
// rewritten. Everything else goes straight to the client.
type bufferingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	passthrough bool
	buf         bytes.Buffer
}

func (w *bufferingWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	if !decoratable(w.Header(), status) {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *bufferingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	if w.buf.Len()+len(b) > maxDecoratedBody {
		w.flushBuffered()
		return w.ResponseWriter.Write(b)
	}
	return w.buf.Write(b)
}

// flushBuffered gives up on decoration and sends what was held back.
func (w *bufferingWriter) flushBuffered() {
	w.passthrough = true
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(w.buf.Bytes())
	w.buf.Reset()
}

func (w *bufferingWriter) buffering() bool {
	return w.wroteHeader && !w.passthrough
}

// Flush is a no-op while the response is held back for decoration.
func (w *bufferingWriter) Flush() {
	if !w.wroteHeader || !w.passthrough {
		return
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *bufferingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func decoratable(h http.Header, status int) bool {
	if status != http.StatusOK {
		return false
	}
	if enc := h.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}
