package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/service/worker"
)

type mockSyncer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockSyncer) RunOnce(ctx context.Context) (*model.SyncReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &model.SyncReport{RunID: "run"}, nil
}

func (m *mockSyncer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSyncWorker(t *testing.T) {
	t.Run("runs immediately and on every tick", func(t *testing.T) {
		syncer := &mockSyncer{}
		w := worker.NewSyncWorker(syncer, 20*time.Millisecond)

		gt.NoError(t, w.Start(context.Background())).Required()
		waitFor(t, func() bool { return syncer.Calls() >= 3 })
		w.Stop()

		calls := syncer.Calls()
		time.Sleep(50 * time.Millisecond)
		gt.Value(t, syncer.Calls()).Equal(calls)
	})

	t.Run("keeps running after a failed run", func(t *testing.T) {
		syncer := &mockSyncer{err: errors.New("store unavailable")}
		w := worker.NewSyncWorker(syncer, 10*time.Millisecond)

		gt.NoError(t, w.Start(context.Background())).Required()
		waitFor(t, func() bool { return syncer.Calls() >= 2 })
		w.Stop()
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		syncer := &mockSyncer{}
		w := worker.NewSyncWorker(syncer, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())

		gt.NoError(t, w.Start(ctx)).Required()
		waitFor(t, func() bool { return syncer.Calls() == 1 })
		cancel()
		w.Stop()
	})
}
