// Package health serves liveness and readiness checks for csmlog watch.
//
// Watch mode registers one check per long-lived component (the SQLite store
// and the file watcher) and mounts the endpoints next to /metrics:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", st.Ping)
//	health.Register(mux, checker, Version, GitCommit, BuildDate)
//
// /health always answers 200 while the process runs. /ready answers 200 with
// status "ready" when every check passes and 503 with status "degraded"
// otherwise, listing each check result. /version reports build information.
package health
