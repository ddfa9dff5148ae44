// Package tasks 跟踪异步抓取任务的状态。
package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/culturelog/internal/domain"
)

// ErrNotFound 表示任务不存在（从未创建或已过期）。
var ErrNotFound = errors.New("task not found")

// Tracker 保存任务状态快照；实现必须并发安全。
type Tracker interface {
	Create(ctx context.Context, url string) (domain.Task, error)
	Update(ctx context.Context, t domain.Task) error
	Get(ctx context.Context, id string) (domain.Task, bool, error)
}

func newTask(url string, now time.Time) domain.Task {
	return domain.Task{
		ID:        uuid.NewString(),
		URL:       strings.TrimSpace(url),
		Status:    domain.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MemoryTracker 是进程内实现；终态任务在 TTL 之后被清理。
type MemoryTracker struct {
	TTL time.Duration // <=0 表示不清理
	Now func() time.Time

	mu    sync.Mutex
	tasks map[string]domain.Task
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{TTL: ttl, Now: time.Now, tasks: map[string]domain.Task{}}
}

func (m *MemoryTracker) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

func (m *MemoryTracker) Create(ctx context.Context, url string) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}
	now := m.now()
	t := newTask(url, now)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks == nil {
		m.tasks = map[string]domain.Task{}
	}
	m.pruneLocked(now)
	m.tasks[t.ID] = t
	return t, nil
}

func (m *MemoryTracker) Update(ctx context.Context, t domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = m.now()
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryTracker) Get(ctx context.Context, id string) (domain.Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	t, ok := m.tasks[id]
	return t, ok, nil
}

func (m *MemoryTracker) pruneLocked(now time.Time) {
	if m.TTL <= 0 {
		return
	}
	for id, t := range m.tasks {
		if t.Finished() && now.Sub(t.UpdatedAt) > m.TTL {
			delete(m.tasks, id)
		}
	}
}
