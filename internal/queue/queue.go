// Package queue decouples the API from the scan-log writer: accepted
// hardware scans are published here and a worker drains them into the flat
// CSV log.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScanEvent is one accepted hardware scan, already resolved to a student.
type ScanEvent struct {
	RegNo  string `json:"regNo"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, ev ScanEvent) error
	Consume(ctx context.Context) (<-chan ScanEvent, error)
}

// InMemory is a channel-backed queue for dev mode, where the API process
// runs its own drain goroutine.
type InMemory struct {
	ch chan ScanEvent
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan ScanEvent, size)}
}

// Publish enqueues an event.
func (q *InMemory) Publish(ctx context.Context, ev ScanEvent) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan ScanEvent, error) {
	out := make(chan ScanEvent)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-q.ch:
				out <- ev
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue so the worker can run as
// a separate process.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "campustrack:scans"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event.
func (q *RedisQueue) Publish(ctx context.Context, ev ScanEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume streams events using BRPOP. Undecodable payloads are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan ScanEvent, error) {
	out := make(chan ScanEvent)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var ev ScanEvent
				if err := json.Unmarshal([]byte(res[1]), &ev); err == nil {
					out <- ev
				}
			}
		}
	}()
	return out, nil
}
