// Package wizard implements the interactive setup flow that selects which
// guild and channel receive moderation alerts. Each invocation is a
// short-lived state machine driven by reaction and message events from the
// operator, with every step bounded by a timeout. Nothing survives a
// restart; an interrupted session is simply abandoned.
package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/toxbot/toxbot/internal/bot/constants"
	"go.uber.org/zap"
)

// Store is the persistence surface the wizard mutates at its terminal step.
type Store interface {
	SetAlertChannel(ctx context.Context, guildID, channelID uint64) error
}

// Guild is a resolved guild.
type Guild struct {
	ID   uint64
	Name string
}

// Channel is a resolved channel.
type Channel struct {
	ID   uint64
	Name string
}

// Platform captures the chat platform operations the wizard needs.
// ClearReactions and DeleteMessage are best-effort; call sites discard
// failures after a debug log.
type Platform interface {
	SendPrompt(ctx context.Context, channelID uint64, content string) (uint64, error)
	EditPrompt(ctx context.Context, channelID, messageID uint64, content string) error
	AddReactions(ctx context.Context, channelID, messageID uint64, emojis ...string) error
	ClearReactions(ctx context.Context, channelID, messageID uint64) error
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	ResolveGuild(ctx context.Context, guildID uint64) (*Guild, bool)
	ResolveChannel(ctx context.Context, channelID uint64) (*Channel, bool)
}

// ReactionEvent is a reaction-add observed on the gateway.
type ReactionEvent struct {
	UserID    uint64
	ChannelID uint64
	MessageID uint64
	Emoji     string
}

// MessageEvent is a new message observed on the gateway.
type MessageEvent struct {
	UserID    uint64
	ChannelID uint64
	MessageID uint64
	Content   string
}

// sessionKey correlates gateway events to a pending session. One session per
// operator per channel.
type sessionKey struct {
	channelID  uint64
	operatorID uint64
}

// Manager tracks pending wizard sessions and routes gateway events to them.
type Manager struct {
	store    Store
	platform Platform
	logger   *zap.Logger

	// stepTimeout bounds each wait; overridable in tests
	stepTimeout time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// NewManager creates a wizard manager.
func NewManager(store Store, platform Platform, logger *zap.Logger) *Manager {
	return &Manager{
		store:       store,
		platform:    platform,
		logger:      logger.Named("wizard"),
		stepTimeout: constants.WizardStepTimeout,
		sessions:    make(map[sessionKey]*Session),
	}
}

// Start launches a wizard session for the operator in the invoking channel.
// The returned session's Done channel closes when the run terminates. A
// second invocation while one is pending for the same operator and channel
// returns nil.
func (m *Manager) Start(ctx context.Context, operatorID uint64, guild Guild, channel Channel) *Session {
	key := sessionKey{channelID: channel.ID, operatorID: operatorID}

	s := &Session{
		store:      m.store,
		platform:   m.platform,
		logger:     m.logger,
		operatorID: operatorID,
		guild:      guild,
		channel:    channel,
		timeout:    m.stepTimeout,
		reactions:  make(chan ReactionEvent, 8),
		messages:   make(chan MessageEvent, 8),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	if _, pending := m.sessions[key]; pending {
		m.mu.Unlock()
		m.logger.Debug("Ignoring setup invocation with a session already pending",
			zap.Uint64("operatorID", operatorID),
			zap.Uint64("channelID", channel.ID))
		return nil
	}
	m.sessions[key] = s
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.sessions, key)
			m.mu.Unlock()
			close(s.done)
		}()

		s.run(ctx)
	}()

	return s
}

// HandleReaction routes a reaction-add event to the session waiting on it,
// if any. Non-matching events are dropped.
func (m *Manager) HandleReaction(e ReactionEvent) {
	m.mu.Lock()
	s, ok := m.sessions[sessionKey{channelID: e.ChannelID, operatorID: e.UserID}]
	m.mu.Unlock()

	if !ok {
		return
	}

	select {
	case s.reactions <- e:
	default:
	}
}

// HandleMessage routes a message event to the session waiting on it, if any.
func (m *Manager) HandleMessage(e MessageEvent) {
	m.mu.Lock()
	s, ok := m.sessions[sessionKey{channelID: e.ChannelID, operatorID: e.UserID}]
	m.mu.Unlock()

	if !ok {
		return
	}

	select {
	case s.messages <- e:
	default:
	}
}
