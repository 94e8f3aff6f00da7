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

// UserModel handles database operations for observed message authors.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a new user model instance.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// GetOrCreate fetches a user by ID, creating the record lazily on first
// observed message. The call is idempotent; a concurrent insert for the same
// ID is a benign race absorbed by the conflict clause.
func (m *UserModel) GetOrCreate(ctx context.Context, id uint64, tag string) (*types.User, error) {
	user := &types.User{
		ID:  id,
		Tag: truncate(tag, types.MaxTagLength),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(user).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.Get(ctx, id)
}

// Get fetches a user by ID, returning nil without an error on a miss.
func (m *UserModel) Get(ctx context.Context, id uint64) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		user := new(types.User)

		err := m.db.NewSelect().
			Model(user).
			Where("id = ?", id).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		return user, nil
	})
}

// UpdateTag refreshes the stored display tag for a user.
func (m *UserModel) UpdateTag(ctx context.Context, id uint64, tag string) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.User)(nil)).
			Set("tag = ?", truncate(tag, types.MaxTagLength)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update user tag: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated user tag", zap.Uint64("userID", id))

	return nil
}
