// Package hooks implements the ordered asynchronous hook pipeline used at
// dev-server lifecycle extension points.
//
// A Hook is an append-only list of (name, callback) registrations per
// lifecycle event, parameterized by the payload type that event carries.
// Calling a hook awaits every callback strictly in registration order; a
// failing callback aborts the remainder and the failure propagates to the
// caller.
//
//	afterStart := hooks.New[AfterStartPayload]("onAfterStartDevServer")
//	afterStart.Register("open-browser", func(ctx context.Context, p AfterStartPayload) error {
//	    return openURL(fmt.Sprintf("http://localhost:%d", p.Port))
//	})
//	err := afterStart.Call(ctx, AfterStartPayload{Port: port})
//
// Hooks are rebuilt from scratch on every restart; callbacks registered by
// static configuration must be re-registered by their owner for the new run.
package hooks
