package types

import (
	"github.com/uptrace/bun"
)

// Guild stores per-guild moderation settings.
// A ChannelID of zero means no alert channel is configured and moderation
// alerts are disabled for the guild.
type Guild struct {
	bun.BaseModel `bun:"table:guilds"`

	ID              uint64 `bun:"id,pk"`
	Name            string `bun:"name,notnull"`
	MinimumToxicity int    `bun:"minimum_toxicity,notnull,default:50"`
	ChannelID       uint64 `bun:"channel_id,nullzero"`
}

// AlertsEnabled reports whether the guild has an alert channel configured.
func (g *Guild) AlertsEnabled() bool {
	return g.ChannelID != 0
}
