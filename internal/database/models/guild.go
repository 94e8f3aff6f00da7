package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/toxbot/toxbot/internal/database/dbretry"
	"github.com/toxbot/toxbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrInvalidThreshold is returned for toxicity thresholds outside 0-100.
var ErrInvalidThreshold = errors.New("minimum toxicity must be between 0 and 100")

// MaxGuildNameLength bounds stored guild names.
const MaxGuildNameLength = 100

// GuildModel handles database operations for guild moderation settings.
type GuildModel struct {
	db               *bun.DB
	logger           *zap.Logger
	defaultThreshold int
}

// NewGuild creates a new guild model instance.
func NewGuild(db *bun.DB, logger *zap.Logger, defaultThreshold int) *GuildModel {
	return &GuildModel{
		db:               db,
		logger:           logger.Named("db_guild"),
		defaultThreshold: defaultThreshold,
	}
}

// GetOrCreate fetches a guild by ID, creating it with default settings on
// first contact. The stored name follows rename events. Concurrent calls for
// the same guild resolve through the upsert rather than a duplicate-key error.
func (m *GuildModel) GetOrCreate(ctx context.Context, id uint64, name string) (*types.Guild, error) {
	guild := &types.Guild{
		ID:              id,
		Name:            truncate(name, MaxGuildNameLength),
		MinimumToxicity: m.defaultThreshold,
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(guild).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert guild: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.Get(ctx, id)
}

// Get fetches a guild by ID. A missing guild is a normal negative outcome
// and returns nil without an error.
func (m *GuildModel) Get(ctx context.Context, id uint64) (*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Guild, error) {
		guild := new(types.Guild)

		err := m.db.NewSelect().
			Model(guild).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get guild: %w", err)
		}

		return guild, nil
	})
}

// GetAll returns every known guild.
func (m *GuildModel) GetAll(ctx context.Context) ([]*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Guild, error) {
		var guilds []*types.Guild

		err := m.db.NewSelect().
			Model(&guilds).
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get guilds: %w", err)
		}

		return guilds, nil
	})
}

// SetAlertChannel points the guild's moderation alerts at a channel.
func (m *GuildModel) SetAlertChannel(ctx context.Context, guildID, channelID uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("channel_id = ?", channelID).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set alert channel: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Set alert channel",
		zap.Uint64("guildID", guildID),
		zap.Uint64("channelID", channelID))

	return nil
}

// ClearAlertChannel disables moderation alerts for the guild.
func (m *GuildModel) ClearAlertChannel(ctx context.Context, guildID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("channel_id = NULL").
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear alert channel: %w", err)
		}

		return nil
	})
}

// SetMinimumToxicity updates the guild's alert threshold percentage.
func (m *GuildModel) SetMinimumToxicity(ctx context.Context, guildID uint64, threshold int) error {
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("minimum_toxicity = ?", threshold).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set minimum toxicity: %w", err)
		}

		return nil
	})
}

// truncate bounds a string to max runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}
