// Package requestid attaches a correlation id to every proxied request.
//
// Inbound X-Request-ID values are reused when they are short and made of
// [a-zA-Z0-9_-]; anything else is replaced by a fresh UUID. The id travels in
// the request context, the response header and the request forwarded to the
// upstream, and LoggerExtractor puts it on every log line written with the
// request context.
package requestid
