// Package inspect serves a live view of a state manager over HTTP:
// a JSON snapshot of the store, per-key reads, Prometheus metrics,
// and a websocket feed that streams every committed change.
//
//	srv := inspect.NewServer(m)
//	defer srv.Close()
//	http.ListenAndServe(":6060", srv.Routes())
//
// Endpoints:
//
//	GET /state        full snapshot as JSON
//	GET /state/{key}  one materialized cell
//	GET /live         websocket change feed
//	GET /healthz      liveness probe
//	GET /metrics      Prometheus exposition
//
// A websocket client first receives a snapshot message, then one
// change message per store mutation. Clients that stop reading are
// dropped rather than allowed to stall the store.
package inspect
