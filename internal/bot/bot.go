// Package bot wires the Discord gateway to the moderation pipeline and the
// setup wizard.
package bot

import (
	"context"
	"strings"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"go.uber.org/zap"

	"github.com/toxbot/toxbot/internal/bot/constants"
	"github.com/toxbot/toxbot/internal/bot/pipeline"
	"github.com/toxbot/toxbot/internal/bot/wizard"
	"github.com/toxbot/toxbot/internal/classifier"
	"github.com/toxbot/toxbot/internal/database"
	"github.com/toxbot/toxbot/internal/setup/config"
)

// Bot owns the Discord client and routes gateway events to the moderation
// pipeline and the setup wizard.
type Bot struct {
	db       database.Client
	client   disgobot.Client
	pipeline *pipeline.Pipeline
	wizard   *wizard.Manager
	logger   *zap.Logger
	prefix   string
	owners   map[uint64]struct{}
}

// New builds the Discord client with the gateway intents message moderation
// needs and hooks up the event listeners.
func New(
	cfg *config.Discord,
	db database.Client,
	classifier *classifier.Client,
	logger *zap.Logger,
) (*Bot, error) {
	owners := make(map[uint64]struct{}, len(cfg.OwnerIDs))
	for _, id := range cfg.OwnerIDs {
		owners[id] = struct{}{}
	}

	b := &Bot{
		db:     db,
		logger: logger.Named("bot"),
		prefix: cfg.Prefix,
		owners: owners,
	}

	client, err := disgo.New(cfg.Token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentMessageContent,
			),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnGuildReady:              b.handleGuildReady,
			OnGuildJoin:               b.handleGuildJoin,
			OnGuildLeave:              b.handleGuildLeave,
			OnGuildMessageCreate:      b.handleMessageCreate,
			OnGuildMessageUpdate:      b.handleMessageUpdate,
			OnGuildMessageReactionAdd: b.handleReactionAdd,
		}),
	)
	if err != nil {
		return nil, err
	}

	b.client = client

	platform := &restPlatform{client: client, logger: b.logger}
	store := &dbStore{db: db}

	b.pipeline = pipeline.New(store, classifier, &alertPlatform{platform}, logger)
	b.wizard = wizard.NewManager(store, &wizardPlatform{platform}, logger)

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleGuildReady upserts the guild row so its name stays current between
// restarts.
func (b *Bot) handleGuildReady(event *events.GuildReady) {
	b.upsertGuild(uint64(event.GuildID), event.Guild.Name)
}

// handleGuildJoin registers newly joined guilds with alerts disabled until
// an owner runs setup.
func (b *Bot) handleGuildJoin(event *events.GuildJoin) {
	b.upsertGuild(uint64(event.GuildID), event.Guild.Name)
}

// handleGuildLeave disables alerts for guilds the bot was removed from. The
// recorded messages stay until the retention worker ages them out.
func (b *Bot) handleGuildLeave(event *events.GuildLeave) {
	go func() {
		if err := b.db.Model().Guild().ClearAlertChannel(context.Background(), uint64(event.GuildID)); err != nil {
			b.logger.Error("Failed to disable alerts for departed guild",
				zap.Uint64("guildID", uint64(event.GuildID)),
				zap.Error(err))
		}
	}()
}

func (b *Bot) upsertGuild(guildID uint64, name string) {
	go func() {
		if _, err := b.db.Model().Guild().GetOrCreate(context.Background(), guildID, name); err != nil {
			b.logger.Error("Failed to register guild",
				zap.Uint64("guildID", guildID),
				zap.Error(err))
		}
	}()
}

// resolveCommand reports whether content invokes a registered command and
// returns its name. A prefixed message naming no registered command is an
// ordinary message and stays subject to moderation.
func (b *Bot) resolveCommand(content string) (string, bool) {
	rest, ok := strings.CutPrefix(content, b.prefix)
	if !ok {
		return "", false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 || fields[0] != constants.SetupCommandName {
		return "", false
	}

	return fields[0], true
}

// handleMessageCreate dispatches inbound guild messages. Messages resolving
// to a registered command go to the command handler, everything else is
// forwarded to any pending wizard session and then moderated.
func (b *Bot) handleMessageCreate(event *events.GuildMessageCreate) {
	message := event.Message
	if message.Author.Bot || message.Author.System {
		return
	}

	if command, ok := b.resolveCommand(message.Content); ok {
		b.handleCommand(event, command)
		return
	}

	b.wizard.HandleMessage(wizard.MessageEvent{
		UserID:    uint64(message.Author.ID),
		ChannelID: uint64(event.ChannelID),
		MessageID: uint64(message.ID),
		Content:   message.Content,
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in message handler", zap.Any("panic", r))
			}
		}()

		b.pipeline.Process(context.Background(), b.buildEvent(event.GenericGuildMessage))
	}()
}

// handleMessageUpdate re-runs moderation over edited messages that were
// recorded on first sight.
func (b *Bot) handleMessageUpdate(event *events.GuildMessageUpdate) {
	message := event.Message
	if message.Author.Bot || message.Author.System {
		return
	}

	if _, ok := b.resolveCommand(message.Content); ok {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in message edit handler", zap.Any("panic", r))
			}
		}()

		b.pipeline.ProcessEdit(context.Background(), b.buildEvent(event.GenericGuildMessage))
	}()
}

// handleReactionAdd forwards operator reactions to any pending wizard
// session.
func (b *Bot) handleReactionAdd(event *events.GuildMessageReactionAdd) {
	if event.Member.User.Bot {
		return
	}

	emoji := ""
	if event.Emoji.Name != nil {
		emoji = *event.Emoji.Name
	}

	b.wizard.HandleReaction(wizard.ReactionEvent{
		UserID:    uint64(event.UserID),
		ChannelID: uint64(event.ChannelID),
		MessageID: uint64(event.MessageID),
		Emoji:     emoji,
	})
}

// handleCommand dispatches resolved prefix commands.
func (b *Bot) handleCommand(event *events.GuildMessageCreate, command string) {
	switch command {
	case constants.SetupCommandName:
		b.handleSetup(event)
	}
}

// handleSetup starts the setup wizard. Restricted to configured owners.
func (b *Bot) handleSetup(event *events.GuildMessageCreate) {
	if _, ok := b.owners[uint64(event.Message.Author.ID)]; !ok {
		b.logger.Debug("Ignoring setup invocation from non-owner",
			zap.Uint64("userID", uint64(event.Message.Author.ID)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in command handler", zap.Any("panic", r))

			_, _ = b.client.Rest().CreateMessage(event.ChannelID,
				discord.NewMessageCreateBuilder().
					SetContent("Something went wrong, sorry.").
					Build())
		}
	}()

	guild, channel, ok := b.resolveInvocation(event)
	if !ok {
		return
	}

	b.wizard.Start(context.Background(), uint64(event.Message.Author.ID), guild, channel)
}

// resolveInvocation looks up the invoking guild and channel for the wizard
// prompt, preferring the gateway cache.
func (b *Bot) resolveInvocation(event *events.GuildMessageCreate) (wizard.Guild, wizard.Channel, bool) {
	guildName := ""
	if guild, ok := b.client.Caches().Guild(event.GuildID); ok {
		guildName = guild.Name
	} else if guild, err := b.client.Rest().GetGuild(event.GuildID, false); err == nil {
		guildName = guild.Name
	} else {
		b.logger.Error("Failed to resolve invoking guild",
			zap.Uint64("guildID", uint64(event.GuildID)),
			zap.Error(err))
		return wizard.Guild{}, wizard.Channel{}, false
	}

	channelName := ""
	if channel, ok := b.client.Caches().Channel(event.ChannelID); ok {
		channelName = channel.Name()
	} else if channel, err := b.client.Rest().GetChannel(event.ChannelID); err == nil {
		channelName = channel.Name()
	} else {
		b.logger.Error("Failed to resolve invoking channel",
			zap.Uint64("channelID", uint64(event.ChannelID)),
			zap.Error(err))
		return wizard.Guild{}, wizard.Channel{}, false
	}

	return wizard.Guild{ID: uint64(event.GuildID), Name: guildName},
		wizard.Channel{ID: uint64(event.ChannelID), Name: channelName}, true
}

// buildEvent converts a gateway message event into a pipeline event,
// resolving the author's guild permissions from the payload member when
// present and the member cache otherwise.
func (b *Bot) buildEvent(event *events.GenericGuildMessage) pipeline.Event {
	message := event.Message

	permissions := discord.Permissions(0)
	memberResolved := false

	// MESSAGE_CREATE carries the author's member object; prefer it so a
	// member cache miss cannot drop the permission bypass
	var member discord.Member
	memberOK := false

	if message.Member != nil {
		member = *message.Member
		member.GuildID = event.GuildID
		member.User = message.Author
		memberOK = true
	} else {
		member, memberOK = b.client.Caches().Member(event.GuildID, message.Author.ID)
	}

	if memberOK {
		permissions = b.client.Caches().MemberPermissions(member)
		memberResolved = true
	}

	return pipeline.Event{
		MessageID:      uint64(message.ID),
		GuildID:        uint64(event.GuildID),
		ChannelID:      uint64(event.ChannelID),
		AuthorID:       uint64(message.Author.ID),
		AuthorName:     message.Author.Username,
		AuthorTag:      authorTag(message.Author),
		Content:        message.Content,
		Permissions:    permissions,
		MemberResolved: memberResolved,
	}
}

// authorTag renders the legacy name#discriminator form when a discriminator
// is still present and the plain username otherwise.
func authorTag(user discord.User) string {
	if user.Discriminator != "" && user.Discriminator != "0" {
		return user.Username + "#" + user.Discriminator
	}

	return user.Username
}
