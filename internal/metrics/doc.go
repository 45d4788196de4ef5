// Package metrics exports crawl activity as Prometheus metrics.
//
// A Recorder is handed to the scheduler, which reports every attempt, every
// discarded URL and the depth of both task queues. The cmd package serves the
// registry on /metrics when --metrics-addr is set.
package metrics
