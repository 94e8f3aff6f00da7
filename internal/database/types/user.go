package types

import (
	"github.com/uptrace/bun"
)

// MaxTagLength bounds the stored display tag
// (32 character username plus separator and discriminator).
const MaxTagLength = 37

// User stores a message author observed by the moderation pipeline.
// The tag is best-effort display metadata and may go stale.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID  uint64 `bun:"id,pk"`
	Tag string `bun:"tag,nullzero"`
}
