package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

var nopLogger = zap.NewNop().Sugar()

type fakeCleaner struct {
	mu      sync.Mutex
	clients []*entity.Client
	deleted []string
	listErr error
}

func (f *fakeCleaner) ListAll(context.Context) ([]*entity.Client, error) {
	return f.clients, f.listErr
}

func (f *fakeCleaner) Delete(_ context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, phone)
	return true, nil
}

func idleClient(phone string, lastMessage time.Time) *entity.Client {
	c := entity.NewClient(phone, lastMessage)
	c.LastMessageAt = &lastMessage
	c.State = entity.StateAwaitingName
	return c
}

func TestIdleCleanupRunOnce(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)

	protected := idleClient("966500000002", old)
	protected.IsProtected = true
	manual := idleClient("966500000003", old)
	manual.ManuallyAdded = true
	completed := idleClient("966500000004", old)
	completed.State = entity.StateCompleted
	recent := idleClient("966500000005", now.Add(-time.Hour))

	store := &fakeCleaner{clients: []*entity.Client{
		idleClient("966500000001", old), protected, manual, completed, recent,
	}}
	w := NewIdleCleanupWorker(store, "@daily", 30*24*time.Hour, nopLogger).WithClock(func() time.Time { return now })

	removed, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"966500000001"}, store.deleted)
}

func TestIdleCleanupListError(t *testing.T) {
	store := &fakeCleaner{listErr: errors.New("disk")}
	w := NewIdleCleanupWorker(store, "", 0, nopLogger)

	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestIdleCleanupInvalidSchedule(t *testing.T) {
	w := NewIdleCleanupWorker(&fakeCleaner{}, "every tuesday", time.Hour, nopLogger)
	err := w.Start(context.Background())
	assert.Error(t, err)
}

func TestDispatchSchedulerRunsTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewDispatchScheduler(10*time.Millisecond, time.Minute, nopLogger)
	go s.Start(ctx)

	done := make(chan struct{})
	id := s.Schedule("notify:1:A1", func(context.Context) error {
		close(done)
		return nil
	})
	assert.NotEmpty(t, id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDispatchSchedulerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewDispatchScheduler(50*time.Millisecond, time.Minute, nopLogger)
	go s.Start(ctx)

	var ran atomic.Bool
	id := s.Schedule("notify:1:A1", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))

	time.Sleep(120 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestDispatchSchedulerDropsStaleTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// o segundo acesso ao relógio acontece no disparo, 11 minutos depois
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			return base
		}
		return base.Add(11 * time.Minute)
	}

	s := NewDispatchScheduler(10*time.Millisecond, 10*time.Minute, nopLogger).WithClock(clock)
	go s.Start(ctx)

	var ran atomic.Bool
	s.Schedule("notify:1:A1", func(context.Context) error {
		ran.Store(true)
		return nil
	})

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestDispatchSchedulerStopClearsPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := NewDispatchScheduler(time.Hour, 2*time.Hour, nopLogger)
	finished := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(finished)
	}()

	s.Schedule("a", func(context.Context) error { return nil })
	s.Schedule("b", func(context.Context) error { return nil })
	assert.Equal(t, 2, s.Pending())

	cancel()
	<-finished
	assert.Zero(t, s.Pending())
}

func TestDispatchSchedulerEnqueueAfterStopDoesNotBlock(t *testing.T) {
	s := NewDispatchScheduler(0, time.Hour, nopLogger)
	// sem buffer e sem runner: o envio só termina via done
	s.ready = make(chan *scheduledTask)

	task := &scheduledTask{id: "t1", name: "late", createdAt: time.Now(), timer: time.NewTimer(time.Hour)}
	s.mu.Lock()
	s.tasks[task.id] = task
	s.mu.Unlock()

	returned := make(chan struct{})
	go func() {
		s.enqueue(task)
		close(returned)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked after the scheduler stopped")
	}

	assert.Empty(t, s.Schedule("after-stop", func(context.Context) error { return nil }))
	assert.Zero(t, s.Pending())
}
