// Package pipeline classifies observed guild messages and raises
// severity-banded alerts in the guild's configured review channel.
package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/toxbot/toxbot/internal/bot/constants"
	dbtypes "github.com/toxbot/toxbot/internal/database/types"
	"go.uber.org/zap"
)

// Scorer produces a toxicity score in [0, 1] for a piece of text.
type Scorer interface {
	Classify(ctx context.Context, text string) float64
}

// Store is the persistence surface the pipeline consumes.
type Store interface {
	GetGuild(ctx context.Context, id uint64) (*dbtypes.Guild, error)
	GetOrCreateUser(ctx context.Context, id uint64, tag string) (*dbtypes.User, error)
	CreateMessage(ctx context.Context, message *dbtypes.Message) error
	GetMessage(ctx context.Context, id uint64) (*dbtypes.Message, error)
	UpdateMessageContent(ctx context.Context, id uint64, content string, toxicity float64) error
}

// Channel is a resolved alert channel.
type Channel struct {
	ID   uint64
	Name string
}

// Platform captures the chat platform operations the pipeline needs.
type Platform interface {
	// ResolveChannel resolves a channel by ID, trying the cache before a
	// direct fetch. A false return means alerts are effectively disabled.
	ResolveChannel(ctx context.Context, channelID uint64) (*Channel, bool)
	// SendAlert posts an alert embed to the given channel.
	SendAlert(ctx context.Context, channelID uint64, embed discord.Embed) error
}

// Event is one inbound guild message to moderate.
type Event struct {
	MessageID  uint64
	GuildID    uint64
	ChannelID  uint64
	AuthorID   uint64
	AuthorName string
	AuthorTag  string
	Content    string

	// Guild permissions of the author, valid only when MemberResolved is set.
	Permissions    discord.Permissions
	MemberResolved bool
}

// Pipeline runs the per-message moderation flow.
type Pipeline struct {
	store    Store
	scorer   Scorer
	platform Platform
	logger   *zap.Logger
}

// New creates a moderation pipeline.
func New(store Store, scorer Scorer, platform Platform, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		scorer:   scorer,
		platform: platform,
		logger:   logger.Named("pipeline"),
	}
}

// Process moderates a newly observed message. Failures degrade toward
// "no alert"; nothing here is fatal to the message-handling path.
func (p *Pipeline) Process(ctx context.Context, e Event) {
	guild, channel, ok := p.prepare(ctx, e)
	if !ok {
		return
	}

	toxicity := p.scorer.Classify(ctx, e.Content)

	p.logger.Debug("Classified message",
		zap.Uint64("messageID", e.MessageID),
		zap.Uint64("authorID", e.AuthorID),
		zap.Float64("toxicity", toxicity))

	// Upsert author before the message row so foreign keys resolve
	if _, err := p.store.GetOrCreateUser(ctx, e.AuthorID, e.AuthorTag); err != nil {
		p.logger.Error("Failed to store author", zap.Uint64("userID", e.AuthorID), zap.Error(err))
		return
	}

	err := p.store.CreateMessage(ctx, &dbtypes.Message{
		ID:        e.MessageID,
		Toxicity:  toxicity,
		Content:   e.Content,
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		AuthorID:  e.AuthorID,
	})
	if err != nil {
		p.logger.Error("Failed to store message", zap.Uint64("messageID", e.MessageID), zap.Error(err))
		return
	}

	p.maybeAlert(ctx, e, guild, channel, toxicity)
}

// ProcessEdit re-scores an edited message that was previously recorded and
// runs the same alert decision against the new content.
func (p *Pipeline) ProcessEdit(ctx context.Context, e Event) {
	guild, channel, ok := p.prepare(ctx, e)
	if !ok {
		return
	}

	stored, err := p.store.GetMessage(ctx, e.MessageID)
	if err != nil {
		p.logger.Error("Failed to look up edited message", zap.Uint64("messageID", e.MessageID), zap.Error(err))
		return
	}
	if stored == nil {
		// Edit of a message observed before the bot joined or one that was
		// bypassed at creation; nothing to re-score.
		return
	}

	toxicity := p.scorer.Classify(ctx, e.Content)

	if err := p.store.UpdateMessageContent(ctx, e.MessageID, e.Content, toxicity); err != nil {
		p.logger.Error("Failed to update edited message", zap.Uint64("messageID", e.MessageID), zap.Error(err))
		return
	}

	p.maybeAlert(ctx, e, guild, channel, toxicity)
}

// prepare runs the shared bypass/guild/channel gate ahead of classification.
// It short-circuits before any scoring work when the author is exempt, the
// guild never ran setup, or the alert channel cannot be resolved.
func (p *Pipeline) prepare(ctx context.Context, e Event) (*dbtypes.Guild, *Channel, bool) {
	if e.MemberResolved && e.Permissions&constants.BypassPermissions != 0 {
		return nil, nil, false
	}

	guild, err := p.store.GetGuild(ctx, e.GuildID)
	if err != nil {
		p.logger.Error("Failed to look up guild", zap.Uint64("guildID", e.GuildID), zap.Error(err))
		return nil, nil, false
	}
	if guild == nil || !guild.AlertsEnabled() {
		return nil, nil, false
	}

	channel, ok := p.platform.ResolveChannel(ctx, guild.ChannelID)
	if !ok {
		// Treated as "alerts disabled", not an error
		p.logger.Debug("Alert channel is unresolvable",
			zap.Uint64("guildID", e.GuildID),
			zap.Uint64("channelID", guild.ChannelID))
		return nil, nil, false
	}

	return guild, channel, true
}

// maybeAlert emits the severity embed when the score reaches the guild's
// threshold.
func (p *Pipeline) maybeAlert(
	ctx context.Context, e Event, guild *dbtypes.Guild, channel *Channel, toxicity float64,
) {
	if !ThresholdMet(toxicity, guild.MinimumToxicity) {
		return
	}

	if err := p.platform.SendAlert(ctx, channel.ID, buildAlert(e, channel, toxicity)); err != nil {
		p.logger.Error("Failed to send alert",
			zap.Uint64("guildID", e.GuildID),
			zap.Uint64("channelID", channel.ID),
			zap.Error(err))
		return
	}

	p.logger.Info("Raised toxicity alert",
		zap.Uint64("guildID", e.GuildID),
		zap.Uint64("messageID", e.MessageID),
		zap.Int("severity", SeverityPercent(toxicity)))
}

// buildAlert assembles the alert embed for a scored message.
func buildAlert(e Event, channel *Channel, toxicity float64) discord.Embed {
	content := e.Content
	if runes := []rune(content); len(runes) > constants.AlertContentLimit {
		content = string(runes[:constants.AlertContentLimit])
	}

	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("[%d%%] Toxic Message", SeverityPercent(toxicity))).
		SetColor(SeverityColor(toxicity)).
		AddField("Message Content", content, false).
		AddField("Author", fmt.Sprintf("%s (%d)", e.AuthorName, e.AuthorID), true).
		AddField("Channel", "#"+channel.Name, true).
		AddField("Exact Toxicity", strconv.FormatFloat(toxicity, 'g', -1, 64), true).
		AddField("Message Link", fmt.Sprintf(
			"[Click me](https://discord.com/channels/%d/%d/%d)",
			e.GuildID, e.ChannelID, e.MessageID), true).
		Build()
}
