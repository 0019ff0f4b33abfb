// internal/cache/room_cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomKeyPrefix = "room:"

// DefaultRoomTTL is how long an untouched room snapshot survives.
const DefaultRoomTTL = 2 * time.Hour

// RoomCache keeps the latest JSON snapshot of every live room. Each save refreshes the TTL,
// so abandoned rooms age out on their own.
type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache returns a RoomCache. A non-positive ttl falls back to DefaultRoomTTL.
func NewRoomCache(client *redis.Client, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RoomCache{client: client, ttl: ttl}
}

func roomKey(code string) string {
	return roomKeyPrefix + code
}

// SaveRoom stores snapshot under the room code.
func (c *RoomCache) SaveRoom(ctx context.Context, code string, snapshot []byte) error {
	if err := c.client.Set(ctx, roomKey(code), snapshot, c.ttl).Err(); err != nil {
		return fmt.Errorf("save room %s: %w", code, err)
	}
	return nil
}

// LoadRoom returns the snapshot for code, or nil if there is none.
func (c *RoomCache) LoadRoom(ctx context.Context, code string) ([]byte, error) {
	data, err := c.client.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return data, nil
}

// DeleteRoom removes the snapshot for code.
func (c *RoomCache) DeleteRoom(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// RoomCodes lists every room with a stored snapshot.
func (c *RoomCache) RoomCodes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := c.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan room keys: %w", err)
	}
	return codes, nil
}

// LoadRooms returns every stored snapshot keyed by room code. Keys that expire between the
// scan and the read are skipped.
func (c *RoomCache) LoadRooms(ctx context.Context) (map[string][]byte, error) {
	codes, err := c.RoomCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(codes))
	for _, code := range codes {
		data, err := c.LoadRoom(ctx, code)
		if err != nil {
			return nil, err
		}
		if data != nil {
			out[code] = data
		}
	}
	return out, nil
}
