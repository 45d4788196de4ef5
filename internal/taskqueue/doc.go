// Package taskqueue provides a bounded, rate-limited, priority-ordered job
// executor.
//
// A Queue accepts jobs through Schedule and dispatches them from a single
// dispatcher goroutine once three gates hold at the same time:
//
//   - the admission reservoir has a token left (refilled on a fixed period)
//   - at least MinTime has passed since the previous dispatch
//   - fewer than MaxConcurrent jobs are running
//
// Among ready jobs the lowest priority value dispatches first, and jobs of
// equal priority dispatch in submission order.
//
// A job that returns an error is handed to the failure handler, which may ask
// for a local re-dispatch after a delay. When nothing is running, queued or
// waiting for such a re-dispatch, the idle handler is called. The idle signal
// is a level: more work may be scheduled right after it fires.
//
// Pausing is done by setting the reservoir to zero with UpdateReservoir.
// Running jobs finish normally; no new job starts until the reservoir is
// restored.
package taskqueue
