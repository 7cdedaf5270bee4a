// Package dom is a small mutable document model over golang.org/x/net/html.
//
// It exposes the parts of a page that link decoration needs: anchors,
// iframes and the documents embedded in iframe srcdoc attributes. All
// accessors lock the owning document, so a periodic rescan may run while
// other goroutines insert elements.
//
//	doc, err := dom.ParseString(page, dom.WithBaseURL(pageURL))
//	for _, a := range doc.Links() {
//		href, _ := a.Attr("href")
//		...
//	}
//	_ = doc.Render(w)
package dom
