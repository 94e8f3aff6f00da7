package types_test

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/toxbot/toxbot/internal/database/types"
)

func TestMessageCreatedAt(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, time.June, 15, 12, 30, 0, 0, time.UTC)
	message := &types.Message{ID: uint64(snowflake.New(created))}

	assert.Equal(t, created.UnixMilli(), message.CreatedAt().UnixMilli())
}

// The retention purge compares `(id >> 22) + epoch` against a cutoff in
// milliseconds. A message exactly one retention window old sits on the
// boundary and must qualify for deletion.
func TestRetentionCutoffBoundary(t *testing.T) {
	t.Parallel()

	window := 30 * 24 * time.Hour
	now := time.Now()
	cutoff := now.Add(-window).UnixMilli()

	derive := func(m *types.Message) int64 {
		return int64(m.ID>>22) + int64(snowflake.Epoch)
	}

	boundary := &types.Message{ID: uint64(snowflake.New(now.Add(-window)))}
	assert.LessOrEqual(t, derive(boundary), cutoff)

	older := &types.Message{ID: uint64(snowflake.New(now.Add(-window - time.Hour)))}
	assert.LessOrEqual(t, derive(older), cutoff)

	fresh := &types.Message{ID: uint64(snowflake.New(now.Add(-window + time.Hour)))}
	assert.Greater(t, derive(fresh), cutoff)
}

func TestMessageCreatedAtOrdersBySnowflake(t *testing.T) {
	t.Parallel()

	older := &types.Message{ID: uint64(snowflake.New(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)))}
	newer := &types.Message{ID: uint64(snowflake.New(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))}

	assert.Less(t, older.ID, newer.ID)
	assert.True(t, older.CreatedAt().Before(newer.CreatedAt()))
}
