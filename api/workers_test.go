package api

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netprobe/scanner"
)

func newTestWorker(store TaskStore, maxSockets int) *Worker {
	scan := scanner.New(scanner.WithProber(openPorts{22: true, 80: true}), scanner.WithLogger(quietLogger()))
	return NewWorker(store, scan, maxSockets, quietLogger())
}

func createTask(t *testing.T, store TaskStore, task ScanTask) string {
	t.Helper()
	task.ID = uuid.NewString()
	task.Status = StatusPending
	task.CreatedAt = time.Now().UTC()
	require.NoError(t, store.CreateTask(context.Background(), &task))
	return task.ID
}

func TestWorkerCompletesTask(t *testing.T) {
	store := NewMemoryStore()
	id := createTask(t, store, ScanTask{Target: "127.0.0.1", Ports: "1-100", Threads: 8, TimeoutMs: 100})

	newTestWorker(store, 64).Process(context.Background(), id)

	task, err := store.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	require.NotNil(t, task.Report)
	assert.EqualValues(t, 100, task.Report.Scanned)
	assert.EqualValues(t, 2, task.Report.Open)
	assert.Equal(t, "SSH", task.Report.Results[0].Service)
	assert.NotNil(t, task.StartedAt)
	assert.NotNil(t, task.CompletedAt)
}

func TestWorkerFailsTask(t *testing.T) {
	store := NewMemoryStore()
	invalid := createTask(t, store, ScanTask{Network: "10.0.0.0/99", Ports: "80", Threads: 8, TimeoutMs: 100})
	overBudget := createTask(t, store, ScanTask{Target: "127.0.0.1", Ports: "80", Threads: 32, TimeoutMs: 100})

	w := newTestWorker(store, 16)
	w.Process(context.Background(), invalid)
	w.Process(context.Background(), overBudget)

	task, err := store.GetTask(context.Background(), invalid)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "invalid CIDR block")

	task, err = store.GetTask(context.Background(), overBudget)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "socket budget")
}

func TestWorkerLoopDrainsQueueAndStops(t *testing.T) {
	store := NewMemoryStore()
	id := createTask(t, store, ScanTask{Network: "10.1.0.0/29", Ports: "22", Threads: 4, TimeoutMs: 100})
	require.NoError(t, store.PushToQueue(context.Background(), id))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(store, 64).Loop(ctx) }()

	require.Eventually(t, func() bool {
		task, err := store.GetTask(context.Background(), id)
		return err == nil && task.Status == StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	task, err := store.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 6, task.Report.Scanned)
	assert.EqualValues(t, 6, task.Report.Open)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker loop did not stop")
	}
}
