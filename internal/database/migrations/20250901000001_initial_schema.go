package migrations

import (
	"context"
	"fmt"

	"github.com/toxbot/toxbot/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Parent tables first so message foreign keys resolve
		models := []any{
			(*types.Guild)(nil),
			(*types.User)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		_, err := db.NewCreateTable().
			Model((*types.Message)(nil)).
			IfNotExists().
			ForeignKey(`("guild_id") REFERENCES "guilds" ("id")`).
			ForeignKey(`("author_id") REFERENCES "users" ("id")`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table messages: %w", err)
		}

		_, err = db.NewCreateIndex().
			Model((*types.Message)(nil)).
			Index("messages_guild_id_idx").
			IfNotExists().
			Column("guild_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create messages guild index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		// Down migration - drop all tables
		for _, table := range []string{"messages", "users", "guilds"} {
			_, err := db.NewRaw(fmt.Sprintf(`DROP TABLE IF EXISTS %q CASCADE`, table)).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
