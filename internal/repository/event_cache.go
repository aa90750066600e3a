package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// EventGetter is the read side of an event source.
type EventGetter interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// CachedEventSource is a Redis read-through cache in front of another event
// source.  Event data changes rarely, so entries live for a fixed TTL and
// are never invalidated explicitly.  Redis errors fall through to the
// underlying source.
type CachedEventSource struct {
	next   EventGetter
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedEventSource wraps next.  With a nil client it returns a source that
// always reads through.
func NewCachedEventSource(next EventGetter, rdb *redis.Client, ttl time.Duration) *CachedEventSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedEventSource{next: next, rdb: rdb, ttl: ttl, prefix: "event"}
}

func (c *CachedEventSource) key(id string) string { return c.prefix + ":" + id }

// GetEvent returns the cached event or loads and caches it.
func (c *CachedEventSource) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if c.rdb == nil {
		return c.next.GetEvent(ctx, id)
	}
	if bs, err := c.rdb.Get(ctx, c.key(id)).Bytes(); err == nil {
		var ev model.Event
		if jerr := json.Unmarshal(bs, &ev); jerr == nil {
			return &ev, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("event cache read failed", zap.String("event_id", id), zap.Error(err))
	}

	ev, err := c.next.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if bs, err := json.Marshal(ev); err == nil {
		if err := c.rdb.SetEx(ctx, c.key(id), bs, c.ttl).Err(); err != nil {
			logger.Warn("event cache write failed", zap.String("event_id", id), zap.Error(err))
		}
	}
	return ev, nil
}
