package redisbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

// Bus carries job wake-up notices between the API process and worker
// processes. Payloads are job types; receivers only use them for logging.
type Bus interface {
	Publish(ctx context.Context, msg string) error
	StartForwarder(ctx context.Context, onMsg func(msg string)) error
	Close() error
}

type Config struct {
	Addr        string
	Channel     string
	DialTimeout time.Duration
}

type bus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func New(log *logger.Logger, cfg Config) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "jobs"
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: dial,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dial)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &bus{
		log:     log.With("service", "RedisJobBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *bus) Publish(ctx context.Context, msg string) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis job bus not initialized")
	}
	return b.rdb.Publish(ctx, b.channel, msg).Err()
}

func (b *bus) StartForwarder(ctx context.Context, onMsg func(msg string)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis job bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
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
				b.log.Debug("Job wake-up received", "job_type", m.Payload)
				onMsg(m.Payload)
			}
		}
	}()

	return nil
}

func (b *bus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
