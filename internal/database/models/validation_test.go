package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toxbot/toxbot/internal/database/models"
	"github.com/toxbot/toxbot/internal/database/types"
	"go.uber.org/zap"
)

func TestSetMinimumToxicityRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	model := models.NewGuild(nil, zap.NewNop(), 50)

	for _, threshold := range []int{-1, 101, 9000} {
		err := model.SetMinimumToxicity(t.Context(), 100, threshold)
		assert.ErrorIs(t, err, models.ErrInvalidThreshold)
	}
}

func TestCreateMessageRejectsInvalidToxicity(t *testing.T) {
	t.Parallel()

	model := models.NewMessage(nil, zap.NewNop())

	for _, toxicity := range []float64{-0.1, 1.1} {
		err := model.Create(t.Context(), &types.Message{ID: 1, Toxicity: toxicity})
		assert.ErrorIs(t, err, models.ErrInvalidToxicity)
	}
}

func TestGuildAlertsEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, (&types.Guild{ID: 1}).AlertsEnabled())
	assert.True(t, (&types.Guild{ID: 1, ChannelID: 500}).AlertsEnabled())
}
