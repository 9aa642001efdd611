// Package reminder arms one-shot deferred notifications.
//
// All pending reminders live in one process-wide min-heap ordered by
// (instant, sequence) and serviced by a single loop goroutine with a single
// timer. Every scheduled reminder is handed to the Sink exactly once, at or
// after its instant; an instant already in the past fires on the next loop
// iteration. There is no unschedule.
package reminder
