package rediscache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
)

// progressCache keeps the ping progress counters and the activity-wide
// agreement level in redis for a short TTL, so a room full of markers
// polling every few seconds does not re-aggregate the draft table each
// time. Misses and redis failures both read as cache misses.
type progressCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ marking.ProgressCache = (*progressCache)(nil)

func NewProgressCache(conf *core.Config, logger core.Logger) marking.ProgressCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &progressCache{rdb: rdb, ttl: conf.Redis.TTL, logger: logger}
}

func countsKey(activityID int) string { return "marking:counts:" + strconv.Itoa(activityID) }
func agreeKey(activityID int) string  { return "marking:agree:" + strconv.Itoa(activityID) }

func (c *progressCache) GetCounts(ctx context.Context, activityID int) (marking.DraftCounts, bool) {
	raw, err := c.rdb.Get(ctx, countsKey(activityID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("reading cached counts", err)
		}
		return marking.DraftCounts{}, false
	}
	var counts marking.DraftCounts
	if err = json.Unmarshal(raw, &counts); err != nil {
		return marking.DraftCounts{}, false
	}
	return counts, true
}

func (c *progressCache) SetCounts(ctx context.Context, activityID int, counts marking.DraftCounts) {
	raw, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err = c.rdb.Set(ctx, countsKey(activityID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("caching counts", err)
	}
}

func (c *progressCache) GetAgreement(ctx context.Context, activityID int) (float64, bool) {
	level, err := c.rdb.Get(ctx, agreeKey(activityID)).Float64()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("reading cached agreement", err)
		}
		return 0, false
	}
	return level, true
}

func (c *progressCache) SetAgreement(ctx context.Context, activityID int, level float64) {
	if err := c.rdb.Set(ctx, agreeKey(activityID), level, c.ttl).Err(); err != nil {
		c.logger.Warn("caching agreement", err)
	}
}
