package bot

import (
	"context"

	"github.com/toxbot/toxbot/internal/database"
	"github.com/toxbot/toxbot/internal/database/types"
)

// dbStore adapts the database repository to the narrow persistence surfaces
// the pipeline and the setup wizard consume.
type dbStore struct {
	db database.Client
}

func (s *dbStore) GetGuild(ctx context.Context, id uint64) (*types.Guild, error) {
	return s.db.Model().Guild().Get(ctx, id)
}

// GetOrCreateUser upserts the user and refreshes the stored tag when it has
// changed since the row was created.
func (s *dbStore) GetOrCreateUser(ctx context.Context, id uint64, tag string) (*types.User, error) {
	user, err := s.db.Model().User().GetOrCreate(ctx, id, tag)
	if err != nil {
		return nil, err
	}

	// Stored tags are bounded, so compare against the bounded form
	if runes := []rune(tag); len(runes) > types.MaxTagLength {
		tag = string(runes[:types.MaxTagLength])
	}

	if user.Tag != tag {
		if err := s.db.Model().User().UpdateTag(ctx, id, tag); err != nil {
			return nil, err
		}
		user.Tag = tag
	}

	return user, nil
}

func (s *dbStore) CreateMessage(ctx context.Context, message *types.Message) error {
	return s.db.Model().Message().Create(ctx, message)
}

func (s *dbStore) GetMessage(ctx context.Context, id uint64) (*types.Message, error) {
	return s.db.Model().Message().Get(ctx, id)
}

func (s *dbStore) UpdateMessageContent(ctx context.Context, id uint64, content string, toxicity float64) error {
	return s.db.Model().Message().UpdateContent(ctx, id, content, toxicity)
}

func (s *dbStore) SetAlertChannel(ctx context.Context, guildID, channelID uint64) error {
	return s.db.Model().Guild().SetAlertChannel(ctx, guildID, channelID)
}
