// internal/cache/action_queue.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heartboard/server/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "heartboard_actions"

// ActionQueue is a Redis list of JSON encoded models.RoomAction records. The game server
// pushes; the historian pops.
type ActionQueue struct {
	client *redis.Client
	name   string
}

// NewActionQueue returns a queue on the named list, DefaultQueueName if empty.
func NewActionQueue(client *redis.Client, name string) *ActionQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &ActionQueue{client: client, name: name}
}

// Name returns the Redis list name.
func (q *ActionQueue) Name() string {
	return q.name
}

// RecordAction serializes the action and pushes it to the tail of the queue.
func (q *ActionQueue) RecordAction(ctx context.Context, action models.RoomAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomAction: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop waits up to timeout for the next action. ok is false when the wait timed out.
// Records that fail to decode are returned as an error and are not requeued.
func (q *ActionQueue) Pop(ctx context.Context, timeout time.Duration) (action models.RoomAction, ok bool, err error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return action, false, nil
	}
	if err != nil {
		return action, false, err
	}
	// BLPop returns [key, value].
	if len(res) != 2 {
		return action, false, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &action); err != nil {
		return action, false, fmt.Errorf("decode queued action: %w", err)
	}
	return action, true, nil
}

// Len returns the number of queued actions.
func (q *ActionQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
