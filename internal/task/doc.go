// Package task holds the task record, the raw input draft it is built from,
// and the in-memory registry that backs "list all tasks".
//
// Tasks are immutable once built. The registry is append-only and is passed
// around as an explicit instance.
package task
