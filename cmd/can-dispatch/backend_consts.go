package main

import "time"

const (
	txQueueSize       = 1024 // capacity of the async backend write queue
	serialReadBufSize = 4096 // per read() buffer for the serial backend
	// largeBufferReclaimThreshold is the capacity above which the temporary
	// serial RX accumulation buffer is discarded and reallocated once empty,
	// so bursts of line noise cannot permanently retain large backing arrays.
	largeBufferReclaimThreshold = 16 * 1024
	rxBackoffMin                = 20 * time.Millisecond
	rxBackoffMax                = 500 * time.Millisecond
)
