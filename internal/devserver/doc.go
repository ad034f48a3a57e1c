// Package devserver is a local stand-in for the Q&A backend. It serves
// the endpoints the page glue talks to, so the CLI and integration tests
// can run without the real application:
//
//	POST /vote               persist a vote, respond {"new_score": n}
//	GET  /search?q=          HTML fragment of matching questions
//	GET  /api/suggest_tags   JSON array of tag names
//	GET  /api/stats          nested platform counters
//	GET  /ws                 realtime notification channel
//	GET  /metrics            Prometheus metrics
//
// Votes are kept one per (user, item). The user is taken from the
// X-User-ID header and falls back to the client address.
package devserver
