// Package async provides the two concurrency primitives the attribution
// engine needs: a Future for fire-and-forget work whose result some callers
// still want to await, and Deferred, an ordered queue of tasks submitted before
// a component is ready.
//
// # Futures
//
//	f := async.Go(ctx, func(ctx context.Context) (string, error) {
//	    return api.TrackClick(ctx, req)
//	})
//	id, err := f.AwaitWithTimeout(300 * time.Millisecond)
//
// Resolved returns an already completed Future for synchronous paths.
//
// # Deferred queue
//
// Deferred buffers submissions until Drain is called. Drain runs the buffered
// tasks exactly once, in submission order; anything submitted afterwards runs
// immediately. Start does the same on a background goroutine so that neither
// it nor later submissions wait for the handler. It replaces the "push onto a global array until the script has
// loaded" pattern.
package async
