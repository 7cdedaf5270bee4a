// Package outbound carries the click id across domain boundaries.
//
// A Decorator appends the click id as a query parameter (dub_id by default)
// to every anchor href and iframe src pointing at a configured outbound
// domain, including the elements of same-origin srcdoc frames. Links to the
// page's own site are never touched, and a URL that already carries the
// parameter is left alone, so repeated passes are idempotent.
//
// Run keeps a document decorated while a page is open: it rescans on a
// ticker and on navigation events. Middleware applies one pass to HTML
// responses.
package outbound
