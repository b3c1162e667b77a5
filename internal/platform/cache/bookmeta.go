package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/platform/openlibrary"
)

const bookMetaKeyPrefix = "bookmeta:"

// BookMetaCache keeps Open Library lookup results keyed by ISBN so a
// repeated import skips the upstream call. It is strictly best effort:
// every Redis failure degrades to a miss and is only logged.
type BookMetaCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

func NewBookMetaCache(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *BookMetaCache {
	return &BookMetaCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *BookMetaCache) Get(ctx context.Context, isbn string) (*openlibrary.BookMetadata, bool) {
	payload, err := c.rdb.Get(ctx, bookMetaKeyPrefix+isbn).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("isbn", isbn).Warn("Book metadata cache read failed")
		}
		return nil, false
	}

	meta := &openlibrary.BookMetadata{}
	if err := json.Unmarshal(payload, meta); err != nil {
		c.log.WithError(err).WithField("isbn", isbn).Warn("Discarding corrupt book metadata cache entry")
		return nil, false
	}
	return meta, true
}

func (c *BookMetaCache) Set(ctx context.Context, isbn string, meta *openlibrary.BookMetadata) {
	payload, err := json.Marshal(meta)
	if err != nil {
		c.log.WithError(err).WithField("isbn", isbn).Warn("Book metadata cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, bookMetaKeyPrefix+isbn, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("isbn", isbn).Warn("Book metadata cache write failed")
	}
}
