package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock abstracts time so scheduled side effects are testable without real
// timers.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func RealClock() Clock { return realClock{} }

// Scheduler runs one-shot delayed tasks (reminders, delayed notices). Fixed
// recurring jobs are wired with cron in the app, not here.
type Scheduler struct {
	clock Clock
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func New(clock Clock, log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:   clock,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]context.CancelFunc),
	}
}

// Schedule runs fn once after the delay. Returns the task ID for Cancel.
func (s *Scheduler) Schedule(after time.Duration, fn func(ctx context.Context)) string {
	id := uuid.NewString()
	taskCtx, taskCancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.pending[id] = taskCancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()
		}()
		select {
		case <-s.clock.After(after):
			fn(taskCtx)
		case <-taskCtx.Done():
			s.log.Debug("scheduled task cancelled", zap.String("task_id", id))
		}
	}()
	return id
}

func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	cancel, ok := s.pending[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels everything still pending and waits for task goroutines.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}
