// Package domainmatch decides whether a URL belongs to the current site or to
// one of the configured outbound domains.
//
// Hostnames and patterns are normalized the same way before comparing:
// whitespace trimmed, lower-cased, port and trailing dot removed, a leading
// "www." stripped and internationalized names converted to their ASCII form.
//
// Two pattern shapes exist. An exact pattern ("example.com") matches the
// normalized host only, so it covers www.example.com but not
// sub.example.com. A wildcard pattern ("*.example.com") matches every
// subdomain at any depth and the apex itself.
//
// Matching never panics: an unparsable URL simply does not match.
package domainmatch
