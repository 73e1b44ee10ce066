package decision

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/adsplice/internal/metrics"
)

// RedisAllowList serves Allowed from an in-memory snapshot of a Redis key. The key may
// be a SET of client ids or a string holding the comma separated form. Lookups never
// touch Redis; Refresh and Run replace the snapshot.
type RedisAllowList struct {
	client   *redis.Client
	logger   *logrus.Logger
	key      string
	interval time.Duration

	snapshot atomic.Pointer[StaticAllowList]
}

// NewRedisAllowList creates a list backed by key. It is empty until the first Refresh.
func NewRedisAllowList(client *redis.Client, logger *logrus.Logger, key string, interval time.Duration) *RedisAllowList {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := &RedisAllowList{
		client:   client,
		logger:   logger,
		key:      key,
		interval: interval,
	}
	l.snapshot.Store(NewStaticAllowList())
	return l
}

// Allowed implements AllowList.
func (l *RedisAllowList) Allowed(clientID string) bool {
	return l.snapshot.Load().Allowed(clientID)
}

// Len returns the size of the current snapshot.
func (l *RedisAllowList) Len() int {
	return l.snapshot.Load().Len()
}

// Refresh reloads the snapshot. A missing key yields an empty list. On error the
// previous snapshot stays in place.
func (l *RedisAllowList) Refresh(ctx context.Context) error {
	kind, err := l.client.Type(ctx, l.key).Result()
	if err != nil {
		return fmt.Errorf("failed to read allow-list key type: %w", err)
	}

	var next *StaticAllowList
	switch kind {
	case "none":
		next = NewStaticAllowList()
	case "set":
		members, err := l.client.SMembers(ctx, l.key).Result()
		if err != nil {
			return fmt.Errorf("failed to read allow-list set: %w", err)
		}
		next = NewStaticAllowList(members...)
	case "string":
		value, err := l.client.Get(ctx, l.key).Result()
		if err != nil {
			return fmt.Errorf("failed to read allow-list string: %w", err)
		}
		next = ParseAllowList(value)
	default:
		return fmt.Errorf("allow-list key %s has unsupported type %s", l.key, kind)
	}

	prev := l.snapshot.Swap(next)
	metrics.SetAllowListEntries(next.Len())
	if prev.Len() != next.Len() {
		l.logger.WithFields(logrus.Fields{
			"key":      l.key,
			"previous": prev.Len(),
			"entries":  next.Len(),
		}).Info("Allow-list updated")
	}
	return nil
}

// Run refreshes the snapshot every interval until ctx is done. Failures are logged
// and the last good snapshot is kept.
func (l *RedisAllowList) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil {
				l.logger.WithError(err).WithField("key", l.key).Warn("Allow-list refresh failed")
			}
		}
	}
}
