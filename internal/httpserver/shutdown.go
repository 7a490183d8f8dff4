package httpserver

import "time"

// ShutdownTimeout controls how long to wait for graceful shutdowns. In-flight
// batches stop between items once shutdown cancels their context.
var ShutdownTimeout = 10 * time.Second

// BatchWriteTimeout returns a response deadline long enough for a full batch
// of items: each item costs one pacing interval plus two upstream calls, and
// the batch itself needs three calls up front.
func BatchWriteTimeout(items int, pace, callTimeout time.Duration) time.Duration {
	if items < 0 {
		items = 0
	}
	perItem := pace + 2*callTimeout
	return time.Duration(items)*perItem + 3*callTimeout + ShutdownTimeout
}
