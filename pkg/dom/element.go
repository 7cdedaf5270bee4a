package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is a handle to an element node. Handles are comparable: two
// handles to the same node are equal.
type Element struct {
	n   *html.Node
	doc *Document
}

// Valid reports whether the handle points at a node.
func (e Element) Valid() bool { return e.n != nil }

// Tag returns the lower-case tag name.
func (e Element) Tag() string {
	if e.n == nil {
		return ""
	}
	return e.n.Data
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	if e.n == nil {
		return "", false
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.n, name)
}

// SetAttr sets or adds the named attribute.
func (e Element) SetAttr(name, value string) {
	if e.n == nil {
		return
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	name = strings.ToLower(name)
	for i := range e.n.Attr {
		if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func attr(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, name string) bool {
	_, ok := attr(n, name)
	return ok
}
