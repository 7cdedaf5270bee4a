// Package trackapi is a small client for the hosted tracking API.
//
// The attribution engine treats the API as a black box reachable over HTTP:
//
//	POST {apiHost}/track/click   {domain, key, url, referrer} -> {clickId, partner?, discount?}
//	POST {apiHost}/track/visit   {domain, url, referrer}      -> {clickId}
//	POST {apiHost}/track/lead    event properties             -> passthrough JSON
//	POST {apiHost}/track/sale    event properties             -> passthrough JSON
//
// Lead and sale calls are authenticated either with a secret key (server
// side, /track/lead and /track/sale) or with a publishable key (browser side,
// /track/lead/client and /track/sale/client).
//
// Calls are best-effort telemetry: there are no retries. Non-2xx responses
// become *APIError values wrapping ErrUnexpectedStatus. When the client runs on
// behalf of a visitor (first-party proxy), attach the visitor's IP and user
// agent with WithVisitor so the API attributes the click to the right device.
//
// Request counts and latencies are exported to Prometheus when WithMetrics is
// given a registerer.
package trackapi
