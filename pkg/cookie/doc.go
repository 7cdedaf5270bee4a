// Package cookie stores the attribution cookie the way a browser would see it.
//
// Everything goes through a Jar, the equivalent of document.cookie: reading
// returns the "name=value; name2=value2" list visible to the current page and
// writing accepts a single Set-Cookie style string. Two jars are provided:
//
//   - MemoryJar keeps cookies in memory and applies browser matching rules
//     (host-only vs. domain cookies, path prefix, expiry, overwrite by
//     name/domain/path). It backs headless page sessions and tests.
//   - HTTPJar reads the Cookie request header and emits Set-Cookie response
//     headers, so the same Store runs inside an HTTP middleware.
//
// Store wraps a Jar with default Options. Zero-valued options are never
// serialized, which is how a localhost page ends up without a Domain
// attribute. Delete is a Set with an expiry in the past and must be called with
// the same domain and path as the original write to have any effect.
//
// Cookie values are written verbatim. Partner data is stored as raw JSON, which
// net/http's strict cookie parser rejects, so both jars parse cookie strings
// with the lenient document.cookie grammar implemented here.
package cookie
