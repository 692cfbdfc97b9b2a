package timer

import (
	"container/heap"
	"sync"
	"time"
)

var (
	ErrSchedulerStopped = &TimerError{"scheduler is stopped"}
)

// TimerError represents a scheduler error
type TimerError struct {
	msg string
}

func (e *TimerError) Error() string {
	return e.msg
}

// Scheduler runs one-shot callbacks keyed by id. Scheduling an id that is
// already pending replaces it, so each id has at most one pending task.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	tasks   map[string]*Task
	wakeup  chan struct{}
	stopCh  chan struct{}
	stopped bool

	// slots bounds the number of callbacks running at once
	slots   chan struct{}
	running sync.WaitGroup
	fired   uint64
}

// NewScheduler creates a scheduler running at most workers callbacks
// concurrently. workers < 1 means 1.
func NewScheduler(workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	s := &Scheduler{
		heap:   make(taskHeap, 0),
		tasks:  make(map[string]*Task),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		slots:  make(chan struct{}, workers),
	}
	heap.Init(&s.heap)
	return s
}

// Start runs the dispatch loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop drops pending tasks and waits for running callbacks to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.heap = s.heap[:0]
	s.tasks = make(map[string]*Task)
	close(s.stopCh)
	s.mu.Unlock()

	s.running.Wait()
}

// Schedule runs fn at due, replacing any pending task with the same id
func (s *Scheduler) Schedule(id string, due time.Time, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.tasks[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, id)
	}

	task := &Task{ID: id, Due: due, Fn: fn}
	heap.Push(&s.heap, task)
	s.tasks[id] = task

	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// After runs fn once d has elapsed
func (s *Scheduler) After(id string, d time.Duration, fn func()) error {
	return s.Schedule(id, time.Now().Add(d), fn)
}

// Cancel removes a pending task
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// Pending returns the due time of a pending task
func (s *Scheduler) Pending(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return task.Due, true
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}

		wait := 24 * time.Hour
		if s.heap.Len() > 0 {
			next := s.heap[0]
			wait = time.Until(next.Due)
			if wait <= 0 {
				task := heap.Pop(&s.heap).(*Task)
				delete(s.tasks, task.ID)
				s.fired++
				s.running.Add(1)
				s.mu.Unlock()
				s.dispatch(task)
				continue
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// dispatch blocks until a worker slot frees up, then runs the task
func (s *Scheduler) dispatch(task *Task) {
	select {
	case s.slots <- struct{}{}:
	case <-s.stopCh:
		s.running.Done()
		return
	}
	go func() {
		defer func() {
			<-s.slots
			s.running.Done()
		}()
		task.Fn()
	}()
}

// Stats returns a snapshot of the scheduler's counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Pending: len(s.tasks),
		Fired:   s.fired,
		Workers: cap(s.slots),
	}
}

// Stats contains scheduler counters
type Stats struct {
	Pending int
	Fired   uint64
	Workers int
}
