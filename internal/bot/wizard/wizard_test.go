package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toxbot/toxbot/internal/bot/constants"
	"go.uber.org/zap"
)

const promptID = uint64(111)

type fakeStore struct {
	mu       sync.Mutex
	guildID  uint64
	channel  uint64
	commits  int
	failNext bool
}

func (s *fakeStore) SetAlertChannel(_ context.Context, guildID, channelID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		return assert.AnError
	}

	s.guildID = guildID
	s.channel = channelID
	s.commits++

	return nil
}

type fakePlatform struct {
	mu       sync.Mutex
	edits    []string
	cleared  int
	deleted  []uint64
	guilds   map[uint64]*Guild
	channels map[uint64]*Channel
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guilds:   make(map[uint64]*Guild),
		channels: make(map[uint64]*Channel),
	}
}

func (p *fakePlatform) SendPrompt(_ context.Context, _ uint64, content string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, content)

	return promptID, nil
}

func (p *fakePlatform) EditPrompt(_ context.Context, _, _ uint64, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, content)

	return nil
}

func (p *fakePlatform) AddReactions(_ context.Context, _, _ uint64, _ ...string) error {
	return nil
}

func (p *fakePlatform) ClearReactions(context.Context, uint64, uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++

	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _, messageID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)

	return nil
}

func (p *fakePlatform) ResolveGuild(_ context.Context, guildID uint64) (*Guild, bool) {
	guild, ok := p.guilds[guildID]
	return guild, ok
}

func (p *fakePlatform) ResolveChannel(_ context.Context, channelID uint64) (*Channel, bool) {
	channel, ok := p.channels[channelID]
	return channel, ok
}

func (p *fakePlatform) lastEdit() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.edits) == 0 {
		return ""
	}

	return p.edits[len(p.edits)-1]
}

func setupManager(t *testing.T) (*Manager, *fakeStore, *fakePlatform) {
	t.Helper()

	store := &fakeStore{}
	platform := newFakePlatform()
	manager := NewManager(store, platform, zap.NewNop())
	manager.stepTimeout = 100 * time.Millisecond

	return manager, store, platform
}

func startSession(t *testing.T, m *Manager) *Session {
	t.Helper()

	s := m.Start(t.Context(), 42,
		Guild{ID: 100, Name: "home guild"},
		Channel{ID: 200, Name: "mod-alerts"})
	require.NotNil(t, s)

	return s
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("wizard session did not terminate")
	}
}

func reaction(emoji string) ReactionEvent {
	return ReactionEvent{UserID: 42, ChannelID: 200, MessageID: promptID, Emoji: emoji}
}

func message(id uint64, content string) MessageEvent {
	return MessageEvent{UserID: 42, ChannelID: 200, MessageID: id, Content: content}
}

func TestWizardThisGuildThisChannel(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	waitDone(t, s)

	assert.Equal(t, 1, store.commits)
	assert.Equal(t, uint64(100), store.guildID)
	assert.Equal(t, uint64(200), store.channel)
	assert.Equal(t, "**#mod-alerts** successfully set as the alerts channel!", platform.lastEdit())
	assert.Equal(t, 2, platform.cleared)
}

func TestWizardAnotherGuildTypedIDs(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)
	platform.guilds[555] = &Guild{ID: 555, Name: "other guild"}
	platform.channels[666] = &Channel{ID: 666, Name: "their-alerts"}

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.DeclineEmoji))
	manager.HandleMessage(message(9001, "555"))
	manager.HandleMessage(message(9002, "666"))
	waitDone(t, s)

	assert.Equal(t, 1, store.commits)
	assert.Equal(t, uint64(555), store.guildID)
	assert.Equal(t, uint64(666), store.channel)
	assert.Equal(t, "**#their-alerts** successfully set as the alerts channel!", platform.lastEdit())

	// Operator messages were deleted best-effort
	assert.Equal(t, []uint64{9001, 9002}, platform.deleted)
}

func TestWizardNonNumericMessagesAreNotConsumed(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.DeclineEmoji))
	manager.HandleMessage(message(9001, "not a number"))
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Empty(t, platform.deleted)
	assert.Equal(t, "Selection timed out.", platform.lastEdit())
}

func TestWizardTimesOutWithoutReaction(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Equal(t, "Selection timed out.", platform.lastEdit())
	assert.Equal(t, 1, platform.cleared)
}

func TestWizardIgnoresForeignReactions(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)

	// Wrong emoji and wrong message never qualify
	manager.HandleReaction(ReactionEvent{UserID: 42, ChannelID: 200, MessageID: promptID, Emoji: "👍"})
	manager.HandleReaction(ReactionEvent{UserID: 42, ChannelID: 200, MessageID: 999, Emoji: constants.AcceptEmoji})
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Equal(t, "Selection timed out.", platform.lastEdit())
}

func TestWizardUnknownGuildID(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.DeclineEmoji))
	manager.HandleMessage(message(9001, "424242"))
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Equal(t, "No guild found matching that ID, sorry.", platform.lastEdit())
}

func TestWizardUnknownChannelID(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	manager.HandleReaction(reaction(constants.DeclineEmoji))
	manager.HandleMessage(message(9001, "31337"))
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Equal(t, "No channel found matching that ID, sorry.", platform.lastEdit())
}

func TestWizardRejectsConcurrentSessions(t *testing.T) {
	t.Parallel()

	manager, _, _ := setupManager(t)

	s := startSession(t, manager)
	assert.Nil(t, manager.Start(t.Context(), 42,
		Guild{ID: 100, Name: "home guild"},
		Channel{ID: 200, Name: "mod-alerts"}))
	waitDone(t, s)

	// A fresh session is allowed once the first terminates
	s2 := startSession(t, manager)
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	waitDone(t, s2)
}

func TestWizardReportsStoreFailure(t *testing.T) {
	t.Parallel()

	manager, store, platform := setupManager(t)
	store.failNext = true

	s := startSession(t, manager)
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	manager.HandleReaction(reaction(constants.AcceptEmoji))
	waitDone(t, s)

	assert.Zero(t, store.commits)
	assert.Equal(t, "Something went wrong while saving the channel, sorry.", platform.lastEdit())
}
