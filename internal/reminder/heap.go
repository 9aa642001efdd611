package reminder

import "container/heap"

// queue is a min-heap of reminders ordered by instant, then by schedule order.
type queue []Reminder

var _ heap.Interface = (*queue)(nil)

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].ID < q[j].ID
	}
	return q[i].At.Before(q[j].At)
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(Reminder)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	r := old[n-1]
	old[n-1] = Reminder{}
	*q = old[:n-1]
	return r
}
