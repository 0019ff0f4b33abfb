package room

import (
	"testing"

	"github.com/heartboard/server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("ABC123")
	assert.False(t, ok)

	e, created := s.GetOrCreate("ABC123")
	require.True(t, created)
	assert.Equal(t, "ABC123", e.State.Code)
	assert.Equal(t, game.DefaultDeckSize, e.State.GameState.Deck.Cards)

	again, created := s.GetOrCreate("ABC123")
	assert.False(t, created)
	assert.Same(t, e, again)
	assert.Equal(t, 1, s.Len())
}

func TestStoreUpsertKeepsEntry(t *testing.T) {
	s := NewStore()
	e, _ := s.GetOrCreate("ABC123")

	replacement := game.NewRoom("ABC123")
	replacement.Players = append(replacement.Players, &game.Player{UserID: "alice"})
	got := s.Upsert(replacement)

	assert.Same(t, e, got)
	assert.Same(t, replacement, e.State)

	fresh := s.Upsert(game.NewRoom("XYZ789"))
	assert.NotSame(t, e, fresh)
	assert.Equal(t, []string{"ABC123", "XYZ789"}, s.Codes())
}

func TestStoreDelete(t *testing.T) {
	s := NewStore()
	e, _ := s.GetOrCreate("ABC123")
	s.Delete("ABC123")
	_, ok := s.Get("ABC123")
	assert.False(t, ok)

	newer, _ := s.GetOrCreate("ABC123")
	assert.False(t, s.deleteIf("ABC123", e), "stale entry must not delete its replacement")
	assert.True(t, s.deleteIf("ABC123", newer))

	s.GetOrCreate("AAA111")
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
