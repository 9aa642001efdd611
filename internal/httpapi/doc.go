// Package httpapi is the optional read-only status surface.
//
// Routes:
//
//	GET /healthz          liveness, never authenticated
//	GET /tasks            registry in insertion order
//	GET /reminders        pending reminders in firing order
//	GET /deliveries       recent notifier deliveries
//	GET /audit?limit=N    tail of the audit journal (404 when storage is off)
//	    /debug/pprof/*    runtime profiles
//
// When a token is configured every route but /healthz requires
// "Authorization: Bearer <token>" or "?token=<token>". A non-loopback bind
// without a token is refused unless allow_insecure is set.
package httpapi
