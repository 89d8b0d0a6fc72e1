package httpserver

import "time"

// ShutdownTimeout bounds graceful shutdown, including draining queued media removals.
var ShutdownTimeout = 20 * time.Second
