// Package scriptconfig resolves the effective attribution configuration from
// the declarative attributes of the embedding <script> tag.
//
// Attributes can come from a plain map, from a parsed HTML <script> node or
// from a YAML file whose keys are the attribute names:
//
//	data-api-host: https://api.dub.co
//	data-domains:
//	  refer: go.example.com
//	  site: site.example.com
//	  outbound: [example.com, "*.partner.io"]
//	data-attribution-model: first-click
//	data-cookie-options:
//	  expiresInDays: 60
//
// Resolution order: the JSON data-domains object wins field by field; the
// legacy data-short-domain, data-site-short-domain and data-outbound-domains
// attributes only fill fields the JSON leaves empty. A data-domains value that
// is not valid JSON is ignored as a whole. Resolve never fails; problems are
// returned as diagnostics for the caller to log.
package scriptconfig
