package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"netprobe/scanner"
)

// TaskStore defines persistence operations for scan tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *ScanTask) error
	GetTask(ctx context.Context, id string) (*ScanTask, error)
	UpdateTask(ctx context.Context, task *ScanTask) error
	PushToQueue(ctx context.Context, taskID string) error
	// PopFromQueue waits briefly for a task ID and returns ErrQueueEmpty when none arrives.
	PopFromQueue(ctx context.Context) (string, error)
}

var (
	// ErrTaskNotFound indicates the requested task doesn't exist in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrQueueEmpty is returned when no task arrived within the pop wait.
	ErrQueueEmpty = errors.New("queue empty")
)

const (
	queueKey = "netprobe:scans:queue"
	popWait  = time.Second
)

// RedisStore implements TaskStore using Redis as backend.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed task store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) taskKey(id string) string {
	return fmt.Sprintf("netprobe:scan:%s", id)
}

// CreateTask persists a new scan task in Redis.
func (s *RedisStore) CreateTask(ctx context.Context, task *ScanTask) error {
	data, err := serializeTask(task)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.taskKey(task.ID), data).Err()
}

// GetTask retrieves a task by ID.
func (s *RedisStore) GetTask(ctx context.Context, id string) (*ScanTask, error) {
	res, err := s.client.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrTaskNotFound
	}
	return deserializeTask(res)
}

// UpdateTask overwrites an existing task in Redis.
func (s *RedisStore) UpdateTask(ctx context.Context, task *ScanTask) error {
	data, err := serializeTask(task)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.taskKey(task.ID), data).Err()
}

// PushToQueue enqueues a task ID for workers to process.
func (s *RedisStore) PushToQueue(ctx context.Context, taskID string) error {
	return s.client.LPush(ctx, queueKey, taskID).Err()
}

// PopFromQueue blocks up to popWait for a task ID.
func (s *RedisStore) PopFromQueue(ctx context.Context) (string, error) {
	res, err := s.client.BRPop(ctx, popWait, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	if len(res) != 2 {
		return "", errors.New("unexpected response size from BRPOP")
	}
	return res[1], nil
}

func serializeTask(task *ScanTask) (map[string]interface{}, error) {
	var reportData string
	if task.Report != nil {
		encoded, err := json.Marshal(task.Report)
		if err != nil {
			return nil, err
		}
		reportData = string(encoded)
	}

	return map[string]interface{}{
		"id":           task.ID,
		"status":       task.Status,
		"target":       task.Target,
		"network":      task.Network,
		"ports":        task.Ports,
		"threads":      task.Threads,
		"timeout_ms":   task.TimeoutMs,
		"report":       reportData,
		"created_at":   task.CreatedAt.Format(time.RFC3339Nano),
		"started_at":   formatTime(task.StartedAt),
		"completed_at": formatTime(task.CompletedAt),
		"error":        task.Error,
	}, nil
}

func deserializeTask(data map[string]string) (*ScanTask, error) {
	task := &ScanTask{
		ID:      data["id"],
		Status:  data["status"],
		Target:  data["target"],
		Network: data["network"],
		Ports:   data["ports"],
		Error:   data["error"],
	}

	var err error
	if task.Threads, err = atoiField(data, "threads"); err != nil {
		return nil, err
	}
	if task.TimeoutMs, err = atoiField(data, "timeout_ms"); err != nil {
		return nil, err
	}

	if raw := data["report"]; raw != "" {
		var report scanner.ScanReport
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		task.Report = &report
	}

	if raw := data["created_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		task.CreatedAt = t
	}
	if task.StartedAt, err = parseTime(data["started_at"]); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseTime(data["completed_at"]); err != nil {
		return nil, err
	}
	return task, nil
}

func atoiField(data map[string]string, key string) (int, error) {
	raw := data[key]
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return v, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
