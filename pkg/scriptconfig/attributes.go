package scriptconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"
)

// Attribute names understood by Resolve.
const (
	AttrAPIHost          = "data-api-host"
	AttrDomains          = "data-domains"
	AttrShortDomain      = "data-short-domain"
	AttrSiteShortDomain  = "data-site-short-domain"
	AttrOutboundDomains  = "data-outbound-domains"
	AttrAttributionModel = "data-attribution-model"
	AttrCookieOptions    = "data-cookie-options"
	AttrQueryParam       = "data-query-param"
	AttrPublishableKey   = "data-publishable-key"
)

// Attributes is the read side of an element's attribute list.
type Attributes interface {
	Get(name string) (string, bool)
}

// Map is an Attributes backed by a map.
type Map map[string]string

func (m Map) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// FromNode copies the attributes of an HTML element.
func FromNode(n *html.Node) Map {
	m := make(Map, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

// FindScript returns the first <script> element whose src contains
// srcContains. An empty srcContains matches the first script carrying any
// data-domains or data-short-domain attribute.
func FindScript(doc *html.Node, srcContains string) (*html.Node, error) {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && scriptMatches(n, srcContains) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		return nil, ErrScriptNotFound
	}
	return found, nil
}

func scriptMatches(n *html.Node, srcContains string) bool {
	attrs := FromNode(n)
	if srcContains != "" {
		src, _ := attrs.Get("src")
		return strings.Contains(src, srcContains)
	}
	_, hasDomains := attrs.Get(AttrDomains)
	_, hasShort := attrs.Get(AttrShortDomain)
	return hasDomains || hasShort
}

// LoadYAML reads an attribute set from a YAML file. Mapping and sequence
// values are re-encoded as JSON strings so they read like the HTML attribute
// would.
func LoadYAML(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script attributes: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes an attribute set from YAML bytes.
func ParseYAML(data []byte) (Map, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode script attributes: %w", err)
	}

	m := make(Map, len(raw))
	for key, val := range raw {
		s, err := attributeString(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
		m[strings.ToLower(key)] = s
	}
	return m, nil
}

func attributeString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedAttributeType, v)
	}
}

// FromHTML parses an HTML document and returns the attributes of the script
// tag selected as in FindScript.
func FromHTML(r io.Reader, srcContains string) (Map, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	n, err := FindScript(doc, srcContains)
	if err != nil {
		return nil, err
	}
	return FromNode(n), nil
}
