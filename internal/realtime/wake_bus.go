package realtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// WakeBus nudges idle workers when a job is enqueued. It is an optimization
// only; workers still poll, so a nil bus or a dropped message costs latency,
// never correctness.
type WakeBus interface {
	Publish(ctx context.Context, jobID string) error
	StartListener(ctx context.Context, onWake func(jobID string)) error
	Close() error
}

type redisWakeBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisWakeBus connects using REDIS_ADDR and REDIS_CHANNEL. Missing
// REDIS_ADDR is an error so the caller can decide to run poll-only.
func NewRedisWakeBus(log *logger.Logger) (WakeBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "jobs:wake"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisWakeBus{
		log:     log.With("service", "RedisWakeBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *redisWakeBus) Publish(ctx context.Context, jobID string) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("wake bus not initialized")
	}
	return b.rdb.Publish(ctx, b.channel, jobID).Err()
}

func (b *redisWakeBus) StartListener(ctx context.Context, onWake func(jobID string)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("wake bus not initialized")
	}
	if onWake == nil {
		return fmt.Errorf("onWake callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				onWake(m.Payload)
			}
		}
	}()

	return nil
}

func (b *redisWakeBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
