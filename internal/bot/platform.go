package bot

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/toxbot/toxbot/internal/bot/pipeline"
	"github.com/toxbot/toxbot/internal/bot/wizard"
)

// restPlatform wraps the Discord client with cache-first lookups. The
// pipeline and wizard adapters below expose it through their own narrow
// interfaces.
type restPlatform struct {
	client bot.Client
	logger *zap.Logger
}

// resolveChannel tries the gateway cache first and falls back to a REST
// fetch for channels the cache has not seen yet.
func (p *restPlatform) resolveChannel(_ context.Context, channelID uint64) (uint64, string, bool) {
	id := snowflake.ID(channelID)

	if channel, ok := p.client.Caches().Channel(id); ok {
		return uint64(channel.ID()), channel.Name(), true
	}

	channel, err := p.client.Rest().GetChannel(id)
	if err != nil {
		p.logger.Debug("Failed to resolve channel",
			zap.Uint64("channelID", channelID),
			zap.Error(err))
		return 0, "", false
	}

	return uint64(channel.ID()), channel.Name(), true
}

// alertPlatform implements the pipeline's platform surface.
type alertPlatform struct {
	*restPlatform
}

func (p *alertPlatform) ResolveChannel(ctx context.Context, channelID uint64) (*pipeline.Channel, bool) {
	id, name, ok := p.resolveChannel(ctx, channelID)
	if !ok {
		return nil, false
	}

	return &pipeline.Channel{ID: id, Name: name}, true
}

func (p *alertPlatform) SendAlert(_ context.Context, channelID uint64, embed discord.Embed) error {
	_, err := p.client.Rest().CreateMessage(snowflake.ID(channelID),
		discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())

	return err
}

// wizardPlatform implements the setup wizard's platform surface.
type wizardPlatform struct {
	*restPlatform
}

func (p *wizardPlatform) SendPrompt(_ context.Context, channelID uint64, content string) (uint64, error) {
	message, err := p.client.Rest().CreateMessage(snowflake.ID(channelID),
		discord.NewMessageCreateBuilder().SetContent(content).Build())
	if err != nil {
		return 0, err
	}

	return uint64(message.ID), nil
}

func (p *wizardPlatform) EditPrompt(_ context.Context, channelID, messageID uint64, content string) error {
	_, err := p.client.Rest().UpdateMessage(snowflake.ID(channelID), snowflake.ID(messageID),
		discord.NewMessageUpdateBuilder().SetContent(content).Build())

	return err
}

func (p *wizardPlatform) AddReactions(_ context.Context, channelID, messageID uint64, emojis ...string) error {
	for _, emoji := range emojis {
		if err := p.client.Rest().AddReaction(snowflake.ID(channelID), snowflake.ID(messageID), emoji); err != nil {
			return err
		}
	}

	return nil
}

func (p *wizardPlatform) ClearReactions(_ context.Context, channelID, messageID uint64) error {
	return p.client.Rest().RemoveAllReactions(snowflake.ID(channelID), snowflake.ID(messageID))
}

func (p *wizardPlatform) DeleteMessage(_ context.Context, channelID, messageID uint64) error {
	return p.client.Rest().DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID))
}

func (p *wizardPlatform) ResolveGuild(_ context.Context, guildID uint64) (*wizard.Guild, bool) {
	id := snowflake.ID(guildID)

	if guild, ok := p.client.Caches().Guild(id); ok {
		return &wizard.Guild{ID: uint64(guild.ID), Name: guild.Name}, true
	}

	guild, err := p.client.Rest().GetGuild(id, false)
	if err != nil {
		p.logger.Debug("Failed to resolve guild",
			zap.Uint64("guildID", guildID),
			zap.Error(err))
		return nil, false
	}

	return &wizard.Guild{ID: uint64(guild.ID), Name: guild.Name}, true
}

func (p *wizardPlatform) ResolveChannel(ctx context.Context, channelID uint64) (*wizard.Channel, bool) {
	id, name, ok := p.resolveChannel(ctx, channelID)
	if !ok {
		return nil, false
	}

	return &wizard.Channel{ID: id, Name: name}, true
}
