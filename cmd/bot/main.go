package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/toxbot/toxbot/internal/bot"
	"github.com/toxbot/toxbot/internal/setup"
	"github.com/toxbot/toxbot/internal/worker/retention"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "toxbot",
		Usage: "Discord toxicity moderation bot",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start the bot and the retention worker",
				Action: runBot,
			},
			{
				Name:   "purge",
				Usage:  "Delete messages outside the retention window and exit",
				Action: runPurge,
			},
			{
				Name:   "guilds",
				Usage:  "List registered guilds and their alert configuration",
				Action: runGuilds,
			},
			{
				Name:      "threshold",
				Usage:     "Set a guild's alert threshold percentage",
				ArgsUsage: "<guild-id> <percent>",
				Action:    runThreshold,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runBot starts the gateway connection and the retention sweep loop, then
// waits for an interrupt to shut both down.
func runBot(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.CleanupApp()

	discordBot, err := bot.New(&app.Config.Discord, app.DB, app.Classifier, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if err := discordBot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	go retention.New(app.DB, &app.Config.Retention, app.Logger).Start(workerCtx)

	app.Logger.Info("Bot started, waiting for interrupt signal")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	discordBot.Close()

	return nil
}

// runPurge performs a single retention sweep without connecting to Discord.
func runPurge(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.CleanupApp()

	purged, err := retention.New(app.DB, &app.Config.Retention, app.Logger).Sweep(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired messages: %w", err)
	}

	app.Logger.Info("Purge completed", zap.Int64("purged", purged))

	return nil
}

// runGuilds prints every registered guild with its threshold and alert
// channel.
func runGuilds(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.CleanupApp()

	guilds, err := app.DB.Model().Guild().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list guilds: %w", err)
	}

	for _, guild := range guilds {
		alerts := "alerts disabled"
		if guild.AlertsEnabled() {
			alerts = fmt.Sprintf("alert channel %d", guild.ChannelID)
		}

		fmt.Printf("%d  %s  threshold %d%%  %s\n", guild.ID, guild.Name, guild.MinimumToxicity, alerts)
	}

	return nil
}

// runThreshold updates the alert threshold for one guild.
func runThreshold(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return errors.New("usage: toxbot threshold <guild-id> <percent>")
	}

	guildID, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid guild ID: %w", err)
	}

	threshold, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}

	app, err := setup.InitializeApp(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.CleanupApp()

	if err := app.DB.Model().Guild().SetMinimumToxicity(ctx, guildID, threshold); err != nil {
		return fmt.Errorf("failed to set threshold: %w", err)
	}

	app.Logger.Info("Threshold updated",
		zap.Uint64("guildID", guildID),
		zap.Int("threshold", threshold))

	return nil
}
