package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	base   *url.URL
	owner  *Element // iframe holding this document in srcdoc
	frames map[*html.Node]*frame
}

type frame struct {
	srcdoc string
	doc    *Document
}

// Option configures parsing.
type Option func(*Document)

// WithBaseURL sets the URL relative references are resolved against. A
// <base href> element in the document refines it.
func WithBaseURL(u *url.URL) Option {
	return func(d *Document) {
		if u != nil {
			c := *u
			d.base = &c
		}
	}
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	d := &Document{root: root, frames: make(map[*html.Node]*frame)}
	for _, opt := range opts {
		opt(d)
	}
	d.applyBaseElement()
	return d, nil
}

// ParseString parses s.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// BaseURL returns the URL relative references resolve against, or nil.
func (d *Document) BaseURL() *url.URL {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.base == nil {
		return nil
	}
	c := *d.base
	return &c
}

// Resolve parses ref and resolves it against the base URL.
func (d *Document) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if base := d.BaseURL(); base != nil {
		u = base.ResolveReference(u)
	}
	return u, nil
}

// Links returns anchors and area elements carrying an href, in document
// order.
func (d *Document) Links() []Element {
	return d.collect(func(n *html.Node) bool {
		return (n.DataAtom == atom.A || n.DataAtom == atom.Area) && hasAttr(n, "href")
	})
}

// Iframes returns iframe elements in document order.
func (d *Document) Iframes() []Element {
	return d.collect(func(n *html.Node) bool { return n.DataAtom == atom.Iframe })
}

// SrcdocDocuments returns the documents embedded in iframe srcdoc
// attributes. Frames that cannot be accessed or parsed are reported in errs
// and skipped. A document is reused across calls while its srcdoc is
// unchanged.
func (d *Document) SrcdocDocuments() (docs []*Document, errs []error) {
	for _, el := range d.Iframes() {
		srcdoc, ok := el.Attr("srcdoc")
		if !ok {
			continue
		}
		if !sameOrigin(el) {
			errs = append(errs, fmt.Errorf("%w: sandboxed srcdoc iframe", ErrCrossOrigin))
			continue
		}

		d.mu.Lock()
		f, cached := d.frames[el.n]
		d.mu.Unlock()
		if cached && f.srcdoc == srcdoc {
			docs = append(docs, f.doc)
			continue
		}

		nested, err := ParseString(srcdoc, WithBaseURL(d.BaseURL()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nested.owner = &el

		d.mu.Lock()
		d.frames[el.n] = &frame{srcdoc: srcdoc, doc: nested}
		d.mu.Unlock()
		docs = append(docs, nested)
	}
	return docs, errs
}

// Commit writes a srcdoc document back into its iframe.
func (d *Document) Commit() error {
	if d.owner == nil {
		return ErrDetached
	}
	srcdoc := d.String()
	parent := d.owner.doc

	d.owner.SetAttr("srcdoc", srcdoc)

	parent.mu.Lock()
	if f, ok := parent.frames[d.owner.n]; ok && f.doc == d {
		f.srcdoc = srcdoc
	}
	parent.mu.Unlock()
	return nil
}

// AppendLink appends <a href="href">text</a> to the body.
func (d *Document) AppendLink(href, text string) (Element, error) {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []html.Attribute{{Key: "href", Val: href}},
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return d.appendToBody(n)
}

// AppendIframe appends <iframe src="src"></iframe> to the body.
func (d *Document) AppendIframe(src string) (Element, error) {
	return d.appendToBody(&html.Node{
		Type:     html.ElementNode,
		Data:     "iframe",
		DataAtom: atom.Iframe,
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	})
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) appendToBody(n *html.Node) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if body == nil {
		return Element{}, ErrNoBody
	}
	body.AppendChild(n)
	return Element{n: n, doc: d}, nil
}

func (d *Document) collect(match func(*html.Node) bool) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, Element{n: n, doc: d})
		}
	})
	return out
}

func (d *Document) applyBaseElement() {
	base := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Base && hasAttr(n, "href") })
	if base == nil {
		return
	}
	href, _ := attr(base, "href")
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}
	if d.base != nil {
		ref = d.base.ResolveReference(ref)
	}
	if ref.IsAbs() {
		d.base = ref
	}
}

// sameOrigin reports whether a srcdoc frame shares the parent's origin. A
// sandbox without allow-same-origin gives the frame an opaque origin.
func sameOrigin(el Element) bool {
	sandbox, ok := el.Attr("sandbox")
	if !ok {
		return true
	}
	for _, token := range strings.Fields(strings.ToLower(sandbox)) {
		if token == "allow-same-origin" {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}
