// Package notifier delivers outbound messages to a UI collaborator
// asynchronously.
//
// Notify only enqueues, so the reminder loop never waits on a UI that blocks
// until the user dismisses a message. Workers drain the queue through a token
// bucket and retry failed displays with jittered exponential backoff.
//
// # History
//
// The service keeps a small in-memory history of delivered messages for the
// status surface.
package notifier
