// Package attribution associates a visitor with a click identifier across
// page loads.
//
// An Instance is one page load. Init inspects the page URL and the cookie
// jar and picks one of three signals:
//
//   - a click id in the URL (dub_id) is stored right away;
//   - a referral key (via by default) is resolved through the tracking API,
//     at most once per page load;
//   - otherwise, when a site domain is configured and no cookie exists, a
//     site visit is recorded and its click id stored.
//
// Every cookie write goes through ShouldAccept, which implements the
// first-click and last-click attribution models.
//
// Headless use:
//
//	cfg := scriptconfig.NewResolver(attrs).Resolve(ctx, "shop.com")
//	inst := attribution.New(cfg, page, jar, api)
//	inst.OnReady(func(p attribution.PartnerRecord) { ... })
//	out, _ := inst.Init(ctx).Await()
//	stop := inst.Subscribe(history)
//	defer stop()
//
// HTTP use: Middleware runs an Instance for every HTML page request and
// makes it available to handlers through FromContext.
package attribution
