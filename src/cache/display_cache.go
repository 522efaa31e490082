package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const keyPrefix = "prolinka:user:display:"

// DisplayCache is a read-through redis cache in front of a UserDirectory.
// Redis failures fall back to the directory; they never fail a request.
type DisplayCache struct {
	client *redis.Client
	next   services.UserDirectory
	ttl    time.Duration
	logger *zap.Logger
}

func NewDisplayCache(client *redis.Client, next services.UserDirectory, ttl time.Duration, logger *zap.Logger) *DisplayCache {
	return &DisplayCache{client: client, next: next, ttl: ttl, logger: logger}
}

func key(id primitive.ObjectID) string {
	return keyPrefix + id.Hex()
}

// ExistsByID is answered from the cache when the user is cached.
func (c *DisplayCache) ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := c.client.Exists(ctx, key(id)).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		c.logger.Warn("Display cache lookup failed", zap.Error(err))
	}
	return c.next.ExistsByID(ctx, id)
}

func (c *DisplayCache) DisplayInfo(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserDto, error) {
	out := make(map[primitive.ObjectID]models.UserDto, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	var missing []primitive.ObjectID
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Display cache read failed", zap.Error(err))
		missing = ids
	} else {
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var dto models.UserDto
			if err := json.Unmarshal([]byte(raw), &dto); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[ids[i]] = dto
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.next.DisplayInfo(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for id, dto := range loaded {
		out[id] = dto
		data, err := json.Marshal(dto)
		if err != nil {
			continue
		}
		pipe.Set(ctx, key(id), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Display cache write failed", zap.Error(err))
	}
	return out, nil
}

func (c *DisplayCache) Invalidate(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
