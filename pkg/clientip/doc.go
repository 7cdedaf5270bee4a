// Package clientip extracts the visitor's IP address from an HTTP request.
//
// The tracking API attributes clicks to the browser, not to the proxy that
// forwards them, so the address is taken from the first valid entry of the
// configured forwarding headers before falling back to RemoteAddr.
//
//	r.Use(clientip.Middleware())
//	ip := clientip.FromContext(r.Context())
package clientip
