// Package audit queues security events and hands them to a pluggable Sink
// on a background goroutine, so a slow sink never adds latency to login or
// token checks.
package audit
