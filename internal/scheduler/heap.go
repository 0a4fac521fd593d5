package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/dispatch-os/internal/models"
)

// job is the scheduler-owned record of one dispatch invocation.
// The payload transfers to the dispatch run when the job fires; after
// that the job is only read for diagnostics, never mutated again except
// for its terminal status.
type job struct {
	id     uuid.UUID
	fireAt time.Time
	seq    uint64 // registration order, breaks fire-time ties
	req    models.DispatchRequest

	status models.JobStatus
	err    error

	index int // position in the heap, -1 once removed
	done  chan struct{}
}

// jobHeap is a min-heap ordered by fire time, then registration order.
// Jobs sharing an identical fire time fire first-scheduled-first.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	j := x.(*job)
	j.index = len(*h)
	*h = append(*h, j)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}
