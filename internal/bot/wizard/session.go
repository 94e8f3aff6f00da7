package wizard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/toxbot/toxbot/internal/bot/constants"
	"go.uber.org/zap"
)

const timeoutText = "Selection timed out."

// Session is a single wizard run. It lives for one invocation, owns one
// prompt message, and commits at most one store mutation at its terminal
// transition.
type Session struct {
	store    Store
	platform Platform
	logger   *zap.Logger

	operatorID uint64
	guild      Guild   // guild the wizard was invoked in
	channel    Channel // channel the wizard was invoked in
	promptID   uint64
	timeout    time.Duration

	reactions chan ReactionEvent
	messages  chan MessageEvent
	done      chan struct{}
}

// Done closes when the session terminates.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// run drives the state machine from guild choice to a terminal edit.
func (s *Session) run(ctx context.Context) {
	promptID, err := s.platform.SendPrompt(ctx, s.channel.ID, fmt.Sprintf(
		"Which guild do you want to setup?\n"+
			"Currently selected guild: **%s** `(%d)`\n\n"+
			"%s This guild.\n%s Another guild.",
		s.guild.Name, s.guild.ID, constants.AcceptEmoji, constants.DeclineEmoji))
	if err != nil {
		s.logger.Error("Failed to send wizard prompt", zap.Error(err))
		return
	}
	s.promptID = promptID

	if err := s.platform.AddReactions(ctx, s.channel.ID, s.promptID,
		constants.AcceptEmoji, constants.DeclineEmoji); err != nil {
		s.logger.Error("Failed to add wizard reactions", zap.Error(err))
		return
	}

	emoji, ok := s.waitReaction(ctx)
	s.clearReactions(ctx)
	if !ok {
		s.edit(ctx, timeoutText)
		return
	}

	if emoji == constants.DeclineEmoji {
		// Picking another guild skips the channel reaction choice; the
		// operator types both IDs instead.
		guild, ok := s.chooseGuildByID(ctx)
		if !ok {
			return
		}

		s.chooseChannelByID(ctx, guild)
		return
	}

	s.chooseChannel(ctx)
}

// chooseGuildByID prompts for a typed guild ID and resolves it.
func (s *Session) chooseGuildByID(ctx context.Context) (Guild, bool) {
	s.edit(ctx, "Which guild do you want to setup?\nType the ID in the chat.")

	id, ok := s.waitNumericMessage(ctx)
	if !ok {
		s.edit(ctx, timeoutText)
		return Guild{}, false
	}

	guild, found := s.platform.ResolveGuild(ctx, id)
	if !found {
		s.edit(ctx, "No guild found matching that ID, sorry.")
		return Guild{}, false
	}

	return *guild, true
}

// chooseChannel offers the reaction choice between the invoking channel and
// a typed ID. Only reachable when the wizard is configuring its own guild.
func (s *Session) chooseChannel(ctx context.Context) {
	s.edit(ctx, fmt.Sprintf(
		"Which channel do you want to setup?\n"+
			"Currently selected channel: **#%s** `(%d)`\n\n"+
			"%s This channel.\n%s Another channel.",
		s.channel.Name, s.channel.ID, constants.AcceptEmoji, constants.DeclineEmoji))

	if err := s.platform.AddReactions(ctx, s.channel.ID, s.promptID,
		constants.AcceptEmoji, constants.DeclineEmoji); err != nil {
		s.logger.Error("Failed to add wizard reactions", zap.Error(err))
		return
	}

	emoji, ok := s.waitReaction(ctx)
	s.clearReactions(ctx)
	if !ok {
		s.edit(ctx, timeoutText)
		return
	}

	if emoji == constants.AcceptEmoji {
		s.commit(ctx, s.guild, s.channel)
		return
	}

	s.chooseChannelByID(ctx, s.guild)
}

// chooseChannelByID prompts for a typed channel ID scoped to the chosen
// guild, resolves it, and commits.
func (s *Session) chooseChannelByID(ctx context.Context, guild Guild) {
	s.edit(ctx, fmt.Sprintf(
		"Currently selected guild: **%s** `(%d)`\n"+
			"Which channel do you want to setup?\nType the ID in the chat.",
		guild.Name, guild.ID))

	id, ok := s.waitNumericMessage(ctx)
	if !ok {
		s.edit(ctx, timeoutText)
		return
	}

	channel, found := s.platform.ResolveChannel(ctx, id)
	if !found {
		s.edit(ctx, "No channel found matching that ID, sorry.")
		return
	}

	s.commit(ctx, guild, *channel)
}

// commit writes the selected channel to the store and edits the prompt with
// the outcome.
func (s *Session) commit(ctx context.Context, guild Guild, channel Channel) {
	if err := s.store.SetAlertChannel(ctx, guild.ID, channel.ID); err != nil {
		s.logger.Error("Failed to save alert channel",
			zap.Uint64("guildID", guild.ID),
			zap.Uint64("channelID", channel.ID),
			zap.Error(err))
		s.edit(ctx, "Something went wrong while saving the channel, sorry.")
		return
	}

	s.edit(ctx, fmt.Sprintf("**#%s** successfully set as the alerts channel!", channel.Name))
}

// waitReaction blocks until the operator reacts on the prompt with one of
// the two choice emojis, or the step times out.
func (s *Session) waitReaction(ctx context.Context) (string, bool) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case e := <-s.reactions:
			if e.MessageID != s.promptID {
				continue
			}
			if e.Emoji != constants.AcceptEmoji && e.Emoji != constants.DeclineEmoji {
				continue
			}
			return e.Emoji, true
		case <-timer.C:
			return "", false
		case <-ctx.Done():
			return "", false
		}
	}
}

// waitNumericMessage blocks until the operator types a message that parses
// as an ID, or the step times out. Non-numeric messages are not consumed.
// The qualifying message is deleted best-effort.
func (s *Session) waitNumericMessage(ctx context.Context) (uint64, bool) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case e := <-s.messages:
			id, err := strconv.ParseUint(e.Content, 10, 64)
			if err != nil {
				continue
			}

			if err := s.platform.DeleteMessage(ctx, e.ChannelID, e.MessageID); err != nil {
				s.logger.Debug("Failed to delete operator message", zap.Error(err))
			}

			return id, true
		case <-timer.C:
			return 0, false
		case <-ctx.Done():
			return 0, false
		}
	}
}

// clearReactions removes the prompt's reactions so stale affordances don't
// linger. Best-effort.
func (s *Session) clearReactions(ctx context.Context) {
	if err := s.platform.ClearReactions(ctx, s.channel.ID, s.promptID); err != nil {
		s.logger.Debug("Failed to clear wizard reactions", zap.Error(err))
	}
}

// edit updates the prompt message.
func (s *Session) edit(ctx context.Context, content string) {
	if err := s.platform.EditPrompt(ctx, s.channel.ID, s.promptID, content); err != nil {
		s.logger.Error("Failed to edit wizard prompt", zap.Error(err))
	}
}
