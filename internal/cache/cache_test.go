package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/heartboard/server/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRoomCacheSaveLoadDelete(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRoomCache(client, time.Hour)
	ctx := context.Background()

	snap := []byte(`{"code":"ABC123","players":[]}`)
	require.NoError(t, c.SaveRoom(ctx, "ABC123", snap))
	assert.Equal(t, time.Hour, mr.TTL("room:ABC123"))

	got, err := c.LoadRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, c.DeleteRoom(ctx, "ABC123"))
	got, err = c.LoadRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRoomCacheExpires(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRoomCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SaveRoom(ctx, "ABC123", []byte(`{}`)))
	mr.FastForward(2 * time.Minute)

	got, err := c.LoadRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRoomCacheLoadRooms(t *testing.T) {
	client, mr := newTestClient(t)
	c := NewRoomCache(client, 0)
	ctx := context.Background()

	require.NoError(t, c.SaveRoom(ctx, "ABC123", []byte(`{"a":1}`)))
	require.NoError(t, c.SaveRoom(ctx, "XYZ789", []byte(`{"b":2}`)))
	require.NoError(t, mr.Set("unrelated", "x"))

	rooms, err := c.LoadRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"ABC123": []byte(`{"a":1}`),
		"XYZ789": []byte(`{"b":2}`),
	}, rooms)
	assert.Equal(t, DefaultRoomTTL, mr.TTL("room:ABC123"))
}

func TestActionQueue(t *testing.T) {
	client, _ := newTestClient(t)
	q := NewActionQueue(client, "")
	ctx := context.Background()
	assert.Equal(t, DefaultQueueName, q.Name())

	in := models.RoomAction{
		RoomCode:    "ABC123",
		ActionIndex: 3,
		ActorUserID: "alice",
		ActionType:  "place-heart",
		Payload:     map[string]any{"heartId": "h1"},
		Timestamp:   1700000000000,
	}
	require.NoError(t, q.RecordAction(ctx, in))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	out, ok, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestActionQueueBadRecord(t *testing.T) {
	client, mr := newTestClient(t)
	q := NewActionQueue(client, "q")
	_, err := mr.RPush("q", "not json")
	require.NoError(t, err)

	_, ok, err := q.Pop(context.Background(), time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}
