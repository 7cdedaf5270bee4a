// Package navigation models single-page-app navigation as an explicit event
// stream.
//
// A host environment reports history changes through a Source instead of
// having its history functions patched. History is an in-memory Source that
// behaves like a browser session history: PushState drops forward entries,
// ReplaceState rewrites the current entry, and Back/Forward emit Pop events.
//
//	h := navigation.NewHistory(start)
//	stop := h.Subscribe(func(ev navigation.Event) {
//		log.Println(ev.Kind, ev.URL)
//	})
//	defer stop()
//
//	_ = h.PushState("/pricing")
package navigation
