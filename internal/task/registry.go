package task

import "sync"

// Registry is the ordered, append-only store of created tasks.
//
// The reminder loop, agenda digest and HTTP surface read it concurrently with
// the UI dispatcher, hence the lock.
type Registry struct {
	mu    sync.RWMutex
	tasks []Task
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends t. It never fails.
func (r *Registry) Add(t Task) {
	r.mu.Lock()
	r.tasks = append(r.tasks, t)
	r.mu.Unlock()
}

// ListAll returns a copy of all tasks in insertion order.
func (r *Registry) ListAll() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
