// Package httpserver runs the attribution proxy's HTTP listener.
//
// Server ties the listener to a context: Run serves until the context is
// cancelled and then shuts down gracefully within the configured timeout.
// Signal handling is left to the caller, typically via signal.NotifyContext
// and an errgroup:
//
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return srv.Run(ctx, router) })
//	return g.Wait()
//
// HealthHandler serves liveness and readiness probes as JSON.
package httpserver
