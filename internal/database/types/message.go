package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// MaxContentLength bounds stored message content.
const MaxContentLength = 2000

// Message stores a scored guild message. Rows are immutable after creation
// except for the content-update path used when a message is edited.
//
// There is no separate timestamp column: the creation time is derived from
// the snowflake ID, which embeds milliseconds since the platform epoch in
// its upper bits. The retention purge relies on this derivation.
type Message struct {
	bun.BaseModel `bun:"table:messages"`

	ID        uint64  `bun:"id,pk"`
	Toxicity  float64 `bun:"toxicity,notnull,default:0"`
	Content   string  `bun:"content,nullzero"`
	GuildID   uint64  `bun:"guild_id,notnull"`
	ChannelID uint64  `bun:"channel_id,notnull"`
	AuthorID  uint64  `bun:"author_id,notnull"`

	Guild  *Guild `bun:"rel:belongs-to,join:guild_id=id"`
	Author *User  `bun:"rel:belongs-to,join:author_id=id"`
}

// CreatedAt returns the creation time embedded in the message's snowflake ID.
func (m *Message) CreatedAt() time.Time {
	return snowflake.ID(m.ID).Time()
}
