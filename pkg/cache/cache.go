// Package cache signals which cached views went stale after a committed change.
//
// Each topic owns a version counter in redis. Readers that cache rendered lists
// key their entries by the current version, so bumping the counter retires every
// entry of that topic at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"peminjaman_alat/pkg/circuitbreaker"
	"peminjaman_alat/pkg/queue"
)

type Topic string

const (
	TopicEquipmentList  Topic = "alat"
	TopicLoanList       Topic = "peminjaman"
	TopicDashboardStats Topic = "dashboard"
)

const keyPrefix = "peminjaman:cache:"

func VersionKey(topic Topic) string {
	return keyPrefix + string(topic) + ":version"
}

// Noop discards every signal. Used when no redis is configured.
type Noop struct{}

func (Noop) Invalidate(context.Context, ...Topic) error { return nil }

// Client is the subset of *redis.Client the invalidator needs.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

const (
	retryDelay   = 10 * time.Second
	pendingLimit = 256
)

// RedisInvalidator bumps topic versions in redis. While redis is failing the
// breaker opens and topics are parked until a later call succeeds.
type RedisInvalidator struct {
	client  Client
	breaker *circuitbreaker.CircuitBreaker
	pending *queue.Queue[[]Topic]
	now     func() time.Time
}

func NewRedisInvalidator(client Client) *RedisInvalidator {
	return &RedisInvalidator{
		client:  client,
		breaker: circuitbreaker.New("redis-cache", 3, 30*time.Second),
		pending: queue.New[[]Topic](pendingLimit),
		now:     time.Now,
	}
}

// NewRedisClient builds the go-redis client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, topics ...Topic) error {
	if len(topics) == 0 {
		return nil
	}

	err := r.breaker.Execute(func() error {
		if failed, err := r.bump(ctx, topics); err != nil {
			r.park(failed, 0)
			return err
		}
		r.flush(ctx)
		return nil
	}, func() error {
		r.park(topics, 0)
		return fmt.Errorf("invalidate %v deferred: %w", topics, circuitbreaker.ErrOpen)
	})
	return err
}

// bump increments every topic version and returns the topics that failed.
func (r *RedisInvalidator) bump(ctx context.Context, topics []Topic) ([]Topic, error) {
	var (
		failed []Topic
		errs   []error
	)
	for _, topic := range dedupe(topics) {
		if err := r.client.Incr(ctx, VersionKey(topic)).Err(); err != nil {
			failed = append(failed, topic)
			errs = append(errs, fmt.Errorf("incr %s: %w", VersionKey(topic), err))
		}
	}
	return failed, errors.Join(errs...)
}

func (r *RedisInvalidator) park(topics []Topic, retries int) {
	dropped := r.pending.Enqueue(&queue.Item[[]Topic]{
		Value:      topics,
		RetryAt:    r.now().Add(retryDelay),
		RetryCount: retries,
	})
	if dropped {
		log.Printf("cache: pending invalidation queue full, oldest entry dropped")
	}
}

func (r *RedisInvalidator) flush(ctx context.Context) {
	for _, item := range r.pending.DequeueDue(r.now()) {
		if failed, err := r.bump(ctx, item.Value); err != nil {
			log.Printf("cache: retry %d of %v failed: %v", item.RetryCount+1, failed, err)
			r.park(failed, item.RetryCount+1)
		}
	}
}

// Pending reports how many invalidations wait for redis.
func (r *RedisInvalidator) Pending() int {
	return r.pending.Size()
}

// Version returns the current version of topic, 0 when never bumped.
func (r *RedisInvalidator) Version(ctx context.Context, topic Topic) (int64, error) {
	v, err := r.client.Get(ctx, VersionKey(topic)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func dedupe(topics []Topic) []Topic {
	seen := make(map[Topic]bool, len(topics))
	out := topics[:0:0]
	for _, t := range topics {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
