package api

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memoryQueueSize bounds pending task IDs held by MemoryStore.
const memoryQueueSize = 1024

// MemoryStore keeps tasks in process memory. It is used when no Redis
// address is configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]ScanTask
	queue chan string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]ScanTask),
		queue: make(chan string, memoryQueueSize),
	}
}

func (s *MemoryStore) CreateTask(_ context.Context, task *ScanTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*ScanTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, task *ScanTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) PushToQueue(_ context.Context, taskID string) error {
	select {
	case s.queue <- taskID:
		return nil
	default:
		return errors.New("task queue is full")
	}
}

func (s *MemoryStore) PopFromQueue(ctx context.Context) (string, error) {
	timer := time.NewTimer(popWait)
	defer timer.Stop()

	select {
	case id := <-s.queue:
		return id, nil
	case <-timer.C:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
