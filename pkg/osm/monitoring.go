package osm

import (
	"sync/atomic"
	"time"
)

// MonitoringHooks receives events from every Client. Nil fields are skipped.
type MonitoringHooks struct {
	// OnRequest runs before the rate limiter is consulted
	OnRequest func(service, operation string)

	// OnResponse runs once the upstream answered or the transport failed
	OnResponse func(service, operation string, duration time.Duration, success bool)

	// OnRateLimit runs when a request waited noticeably for a token
	OnRateLimit func(service string, waitTime time.Duration)

	OnError func(service, errorType string)
}

var globalHooks atomic.Pointer[MonitoringHooks]

// SetMonitoringHooks installs hooks for all clients; nil removes them
func SetMonitoringHooks(hooks *MonitoringHooks) {
	globalHooks.Store(hooks)
}

func getMonitoringHooks() *MonitoringHooks {
	return globalHooks.Load()
}
