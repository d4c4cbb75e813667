package application

import "expvar"

// Process-wide counters published on /debug/vars.
var (
	sessionsActive = expvar.NewInt("sessions_active")
	checksStarted  = expvar.NewInt("checks_started")
	checksStale    = expvar.NewInt("checks_stale")
)
