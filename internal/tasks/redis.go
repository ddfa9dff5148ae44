package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/John-Robertt/culturelog/internal/domain"
)

// DefaultKeyPrefix 是任务键的前缀：<prefix><task id>。
const DefaultKeyPrefix = "culturelog:task:"

// RedisTracker 把任务以 JSON 存在 redis 中，便于多实例共享状态。
// 每次写入都会刷新 TTL。
type RedisTracker struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

func NewRedisTracker(client redis.UniversalClient, ttl time.Duration) *RedisTracker {
	return &RedisTracker{Client: client, Prefix: DefaultKeyPrefix, TTL: ttl}
}

func (r *RedisTracker) key(id string) string {
	p := r.Prefix
	if p == "" {
		p = DefaultKeyPrefix
	}
	return p + id
}

func (r *RedisTracker) Create(ctx context.Context, url string) (domain.Task, error) {
	t := newTask(url, time.Now().UTC())
	b, err := json.Marshal(t)
	if err != nil {
		return domain.Task{}, err
	}
	ok, err := r.Client.SetNX(ctx, r.key(t.ID), b, r.TTL).Result()
	if err != nil {
		return domain.Task{}, fmt.Errorf("redis 写入任务失败：%w", err)
	}
	if !ok {
		return domain.Task{}, fmt.Errorf("任务 id 冲突：%s", t.ID)
	}
	return t, nil
}

func (r *RedisTracker) Update(ctx context.Context, t domain.Task) error {
	t.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ok, err := r.Client.SetXX(ctx, r.key(t.ID), b, r.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis 更新任务失败：%w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *RedisTracker) Get(ctx context.Context, id string) (domain.Task, bool, error) {
	b, err := r.Client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("redis 读取任务失败：%w", err)
	}
	var t domain.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return domain.Task{}, false, fmt.Errorf("任务数据损坏 id=%s: %w", id, err)
	}
	return t, true, nil
}
