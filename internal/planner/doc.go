// Package planner holds the task use cases: submitting a draft, listing the
// registry and turning a fired reminder into a UI message.
//
// The package owns every user-visible text so all UIs say the same thing.
package planner
