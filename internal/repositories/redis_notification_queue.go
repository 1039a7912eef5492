package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"field-crm/internal/entities"

	"github.com/go-redis/redis/v8"
)

// NotificationQueueInterface is the outbox for best-effort messages. Ready tasks live in a
// list, delayed retries in a sorted set scored by their due time.
type NotificationQueueInterface interface {
	Enqueue(ctx context.Context, task *entities.NotificationTask) error
	// Dequeue blocks up to wait for a ready task. It returns nil, nil on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (*entities.NotificationTask, error)
	Schedule(ctx context.Context, task *entities.NotificationTask, at time.Time) error
	// PromoteDue moves delayed tasks whose time has come to the ready list.
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	DeadLetter(ctx context.Context, task *entities.NotificationTask) error
}

type RedisNotificationQueue struct {
	client     *redis.Client
	readyKey   string
	delayedKey string
	deadKey    string
}

func NewRedisNotificationQueue(client *redis.Client, key string) NotificationQueueInterface {
	return &RedisNotificationQueue{
		client:     client,
		readyKey:   key,
		delayedKey: key + ":delayed",
		deadKey:    key + ":dead",
	}
}

func (q *RedisNotificationQueue) Enqueue(ctx context.Context, task *entities.NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode notification task: %w", err)
	}
	return q.client.LPush(ctx, q.readyKey, payload).Err()
}

func (q *RedisNotificationQueue) Dequeue(ctx context.Context, wait time.Duration) (*entities.NotificationTask, error) {
	res, err := q.client.BRPop(ctx, wait, q.readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var task entities.NotificationTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("decode notification task: %w", err)
	}
	return &task, nil
}

func (q *RedisNotificationQueue) Schedule(ctx context.Context, task *entities.NotificationTask, at time.Time) error {
	task.NotBefore = at
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode notification task: %w", err)
	}
	return q.client.ZAdd(ctx, q.delayedKey, &redis.Z{Score: float64(at.Unix()), Member: payload}).Err()
}

func (q *RedisNotificationQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		// Only the worker whose ZREM succeeds owns the task.
		removed, err := q.client.ZRem(ctx, q.delayedKey, member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey, member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (q *RedisNotificationQueue) DeadLetter(ctx context.Context, task *entities.NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode notification task: %w", err)
	}
	return q.client.LPush(ctx, q.deadKey, payload).Err()
}
