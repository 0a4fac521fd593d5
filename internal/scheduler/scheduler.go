// Package scheduler holds pending dispatch invocations keyed by fire
// time and starts each one exactly once, at or after its fire time.
//
// A single timing goroutine sleeps until the earliest pending job is
// due, then hands the job's payload to a fresh run goroutine so the
// timing goroutine is immediately free again. Late wakeups fire late;
// no job is ever skipped for lateness. Pending jobs live in memory only
// and do not survive a process restart.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/models"
)

var (
	// ErrInvalidSchedule is returned when a fire time is not strictly in
	// the future at acceptance time.
	ErrInvalidSchedule = errors.New("fire time must be in the future")

	// ErrNoRecipients is returned when a request carries an empty
	// recipient list.
	ErrNoRecipients = errors.New("recipients must not be empty")

	// ErrStopped is returned when the scheduler is no longer accepting
	// work.
	ErrStopped = errors.New("scheduler stopped")
)

// DispatchRunner executes one dispatch run. This allows mocking in tests.
type DispatchRunner interface {
	Run(ctx context.Context, runID uuid.UUID, req models.DispatchRequest) error
}

// JobInfo is the diagnostic view of a scheduled job.
type JobInfo struct {
	ID         uuid.UUID        `json:"id"`
	FireAt     time.Time        `json:"fire_at"`
	Owner      string           `json:"owner"`
	Recipients int              `json:"recipients"`
	Status     models.JobStatus `json:"status"`
}

// Handle tracks one dispatch invocation accepted by the scheduler.
type Handle struct {
	ID  uuid.UUID
	job *job
	s   *Scheduler
}

// Done is closed when the invocation's run has finished.
func (h *Handle) Done() <-chan struct{} { return h.job.done }

// Status returns the invocation's current lifecycle state.
func (h *Handle) Status() models.JobStatus {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.job.status
}

// Err returns the run's terminal error, if any. Only meaningful after
// Done is closed.
func (h *Handle) Err() error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.job.err
}

// Scheduler is the single timing authority for dispatch jobs.
type Scheduler struct {
	runner DispatchRunner
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending jobHeap
	jobs    map[uuid.UUID]*job
	seq     uint64
	stopped bool

	wake   chan struct{}
	quit   chan struct{}
	ctx    context.Context // passed to dispatch runs
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler and starts its timing goroutine.
func New(runner DispatchRunner, log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		runner: runner,
		log:    log,
		now:    time.Now,
		jobs:   make(map[uuid.UUID]*job),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.loop()

	return s
}

// ScheduleNow begins a dispatch run immediately on its own goroutine.
// The caller gets a handle back without waiting for the run.
func (s *Scheduler) ScheduleNow(req models.DispatchRequest) (*Handle, error) {
	if len(req.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStopped
	}

	j := s.newJobLocked(req, s.now())
	j.status = models.JobStatusRunning
	s.startRun(j)

	return &Handle{ID: j.id, job: j, s: s}, nil
}

// ScheduleAt registers a deferred dispatch. The fire time must be
// strictly later than the scheduler's clock at acceptance.
func (s *Scheduler) ScheduleAt(req models.DispatchRequest, fireAt time.Time) (uuid.UUID, error) {
	if len(req.Recipients) == 0 {
		return uuid.Nil, ErrNoRecipients
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return uuid.Nil, ErrStopped
	}
	if !fireAt.After(s.now()) {
		return uuid.Nil, ErrInvalidSchedule
	}

	j := s.newJobLocked(req, fireAt)
	j.status = models.JobStatusPending
	heap.Push(&s.pending, j)

	s.log.Info().
		Str("job_id", j.id.String()).
		Time("fire_at", fireAt).
		Int("recipients", len(req.Recipients)).
		Msg("job scheduled")

	s.kick()
	return j.id, nil
}

// Cancel removes a pending job. It returns false when the job has
// already fired, was already cancelled, or does not exist; at most one
// of Cancel and firing wins.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.status != models.JobStatusPending || j.index < 0 {
		return false
	}

	heap.Remove(&s.pending, j.index)
	j.status = models.JobStatusCancelled
	close(j.done)

	s.log.Info().Str("job_id", id.String()).Msg("job cancelled")

	s.kick()
	return true
}

// Status reports the lifecycle state of a known job.
func (s *Scheduler) Status(id uuid.UUID) (models.JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	return j.status, true
}

// ListPending returns the not-yet-fired jobs in fire order.
func (s *Scheduler) ListPending() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.pending))
	for _, j := range s.pending {
		infos = append(infos, JobInfo{
			ID:         j.id,
			FireAt:     j.fireAt,
			Owner:      j.req.Owner,
			Recipients: len(j.req.Recipients),
			Status:     j.status,
		})
	}

	sort.Slice(infos, func(i, k int) bool {
		if infos[i].FireAt.Equal(infos[k].FireAt) {
			return infos[i].ID.String() < infos[k].ID.String()
		}
		return infos[i].FireAt.Before(infos[k].FireAt)
	})

	return infos
}

// Stop shuts the scheduler down: no new work is accepted, the timing
// goroutine exits, and in-flight runs get to finish. When ctx expires
// before they do, their run context is cancelled so they stop at the
// next recipient boundary. Still-pending jobs never fire and are lost,
// matching the restart semantics of the system this replaces.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.quit)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) newJobLocked(req models.DispatchRequest, fireAt time.Time) *job {
	s.seq++
	j := &job{
		id:     uuid.New(),
		fireAt: fireAt,
		seq:    s.seq,
		req:    req,
		index:  -1,
		done:   make(chan struct{}),
	}
	s.jobs[j.id] = j
	return j
}

// kick nudges the timing goroutine to re-evaluate its next deadline.
func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// loop is the timing authority. It pops due jobs in (fire time,
// registration) order and starts each run on its own goroutine, then
// sleeps until the next deadline or the next kick.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		now := s.now()

		for len(s.pending) > 0 && !s.pending[0].fireAt.After(now) {
			j := heap.Pop(&s.pending).(*job)
			j.status = models.JobStatusRunning
			s.startRun(j)
		}

		var timer *time.Timer
		var next <-chan time.Time
		if len(s.pending) > 0 {
			timer = time.NewTimer(s.pending[0].fireAt.Sub(now))
			next = timer.C
		}
		s.mu.Unlock()

		select {
		case <-s.quit:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-next:
		}
	}
}

// startRun launches the dispatch run for a job on its own goroutine.
// Callers must hold s.mu; the goroutine re-acquires it only when the
// run finishes.
func (s *Scheduler) startRun(j *job) {
	if s.ctx.Err() != nil {
		// Shutdown raced the fire: the run context is already dead, so
		// the invocation cannot start and writes nothing to the ledger.
		j.status = models.JobStatusFailedToStart
		j.err = s.ctx.Err()
		close(j.done)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.runner.Run(s.ctx, j.id, j.req)

		s.mu.Lock()
		j.err = err
		j.status = models.JobStatusCompleted
		s.mu.Unlock()
		close(j.done)
	}()
}
