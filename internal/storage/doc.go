// Package storage is the optional audit journal.
//
// Tasks themselves are never persisted; the journal only records what
// happened (task.added, reminder.fired) so an operator can reconstruct a
// session after the fact. Drivers: "file" (JSON Lines) and "sqlite"
// (build tag sqlite).
package storage
