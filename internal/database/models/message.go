package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/toxbot/toxbot/internal/database/dbretry"
	"github.com/toxbot/toxbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrInvalidToxicity is returned for toxicity scores outside [0, 1].
var ErrInvalidToxicity = errors.New("toxicity must be between 0 and 1")

// MessageModel handles database operations for scored messages.
type MessageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMessage creates a new message model instance.
func NewMessage(db *bun.DB, logger *zap.Logger) *MessageModel {
	return &MessageModel{
		db:     db,
		logger: logger.Named("db_message"),
	}
}

// Create stores a scored message. Content is bounded at the repository
// boundary; a conflicting insert for the same message ID is ignored since
// message IDs are unique and the first write wins.
func (m *MessageModel) Create(ctx context.Context, message *types.Message) error {
	if message.Toxicity < 0 || message.Toxicity > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidToxicity, message.Toxicity)
	}

	message.Content = truncate(message.Content, types.MaxContentLength)

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(message).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored message",
		zap.Uint64("messageID", message.ID),
		zap.Uint64("guildID", message.GuildID),
		zap.Float64("toxicity", message.Toxicity))

	return nil
}

// Get fetches a message by ID, returning nil without an error on a miss.
func (m *MessageModel) Get(ctx context.Context, id uint64) (*types.Message, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Message, error) {
		message := new(types.Message)

		err := m.db.NewSelect().
			Model(message).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get message: %w", err)
		}

		return message, nil
	})
}

// UpdateContent replaces the stored content after a message edit, along with
// the score of the edited text.
func (m *MessageModel) UpdateContent(ctx context.Context, id uint64, content string, toxicity float64) error {
	if toxicity < 0 || toxicity > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidToxicity, toxicity)
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Message)(nil)).
			Set("content = ?", truncate(content, types.MaxContentLength)).
			Set("toxicity = ?", toxicity).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update message content: %w", err)
		}

		return nil
	})
}

// PurgeOlderThan deletes messages whose snowflake-derived creation time plus
// the retention window is at or before now. The boundary is inclusive: a
// message exactly at the cutoff is removed. Returns the number of rows deleted.
func (m *MessageModel) PurgeOlderThan(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window).UnixMilli()

	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		res, err := m.db.NewDelete().
			Model((*types.Message)(nil)).
			Where("(id >> 22) + ? <= ?", int64(snowflake.Epoch), cutoff).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to purge messages: %w", err)
		}

		removed, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count purged messages: %w", err)
		}

		return removed, nil
	})
}
