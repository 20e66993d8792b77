package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/infra/metrics"
)

// DispatchScheduler defers notification sends. Each task gets an id usable
// with Cancel; tasks run one at a time, and a task that waited longer than
// staleAfter since it was scheduled is dropped instead of run.
type DispatchScheduler struct {
	delay      time.Duration
	staleAfter time.Duration
	runTimeout time.Duration
	now        func() time.Time
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	stopped bool
	ready   chan *scheduledTask
	done    chan struct{}
}

type scheduledTask struct {
	id        string
	name      string
	createdAt time.Time
	timer     *time.Timer
	fn        func(ctx context.Context) error
}

func NewDispatchScheduler(delay, staleAfter time.Duration, logger *zap.SugaredLogger) *DispatchScheduler {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &DispatchScheduler{
		delay:      delay,
		staleAfter: staleAfter,
		runTimeout: 30 * time.Second,
		now:        time.Now,
		logger:     logger,
		tasks:      make(map[string]*scheduledTask),
		ready:      make(chan *scheduledTask, 256),
		done:       make(chan struct{}),
	}
}

func (s *DispatchScheduler) WithClock(now func() time.Time) *DispatchScheduler {
	s.now = now
	return s
}

// Schedule registers fn to run after the delay window and returns its id.
// After Start returned nothing is scheduled.
func (s *DispatchScheduler) Schedule(name string, fn func(ctx context.Context) error) string {
	task := &scheduledTask{
		id:        uuid.NewString(),
		name:      name,
		createdAt: s.now(),
		fn:        fn,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Warnw("⚠️ [DISPATCH] scheduler encerrado, envio descartado", "name", name)
		metrics.RecordNotification("skipped")
		return ""
	}
	s.tasks[task.id] = task
	task.timer = time.AfterFunc(s.delay, func() { s.enqueue(task) })
	s.mu.Unlock()

	s.logger.Debugw("⏳ [DISPATCH] envio agendado", "task_id", task.id, "name", name, "delay", s.delay)
	return task.id
}

// Cancel drops a task that has not started yet.
func (s *DispatchScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(s.tasks, id)
	return true
}

func (s *DispatchScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Start runs ready tasks until ctx is done. Pending timers are stopped on exit.
func (s *DispatchScheduler) Start(ctx context.Context) {
	s.logger.Infow("🕒 Dispatch scheduler iniciado", "delay", s.delay, "stale_after", s.staleAfter)
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			s.logger.Info("⚠️ Dispatch scheduler encerrado")
			return
		case task := <-s.ready:
			s.run(ctx, task)
		}
	}
}

func (s *DispatchScheduler) enqueue(task *scheduledTask) {
	s.mu.Lock()
	_, alive := s.tasks[task.id]
	s.mu.Unlock()
	if !alive {
		return
	}
	select {
	case s.ready <- task:
	case <-s.done:
	}
}

func (s *DispatchScheduler) run(ctx context.Context, task *scheduledTask) {
	s.mu.Lock()
	_, alive := s.tasks[task.id]
	delete(s.tasks, task.id)
	s.mu.Unlock()
	if !alive {
		return
	}

	if age := s.now().Sub(task.createdAt); age > s.staleAfter {
		s.logger.Warnw("🗑️ [DISPATCH] envio descartado por estar velho", "task_id", task.id, "name", task.name, "age", age.Round(time.Second))
		metrics.RecordNotification("stale")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	if err := task.fn(runCtx); err != nil {
		s.logger.Errorw("❌ [DISPATCH] envio falhou", "task_id", task.id, "name", task.name, "error", err)
	}
}

func (s *DispatchScheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	for id, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}
