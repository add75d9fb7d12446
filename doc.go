// Package hookline is the webhook delivery engine for the FormHive survey
// platform.
//
// Hookline is a library — not a service. The host application imports it,
// hands it survey and response snapshots after its own writes commit, and
// gets at-least-once delivery of cryptographically signed webhook payloads
// with bounded automatic retry.
//
// Key properties:
//   - Fire-and-forget dispatch: a slow or broken subscriber can never slow
//     down or fail the triggering business operation
//   - Every HTTP send is recorded as an immutable delivery attempt row;
//     delivery failure is data, not an exception
//   - HMAC-SHA256 signed payloads (t=<ts>,v1=<hex> signature header)
//   - Fixed escalating retry schedule (1m, 5m, 15m) with a claim step that
//     makes overlapping poller sweeps safe
//   - Composable store pattern with multiple backends (Postgres/SQLite via
//     Bun, Redis, MongoDB, in-memory)
//
// Quick start:
//
//	eng, err := hookline.New(
//	    hookline.WithStore(memory.New()),
//	    hookline.WithSurveySource(surveys),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// After a response commit:
//	eng.Dispatch(ctx, surveyID, event.ResponseSubmitted, &event.Response{...})
package hookline
