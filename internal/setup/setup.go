// Package setup bootstraps the shared application components.
package setup

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/toxbot/toxbot/internal/classifier"
	"github.com/toxbot/toxbot/internal/database"
	"github.com/toxbot/toxbot/internal/setup/config"
)

// App bundles the components every entrypoint needs.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         database.Client
	Classifier *classifier.Client
}

// InitializeApp loads configuration, builds the logger, connects to the
// database, and constructs the classifier client.
func InitializeApp(ctx context.Context, autoMigrate bool) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(&cfg.Debug)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("path", configPath))

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL,
		cfg.Moderation.DefaultMinimumToxicity, logger, autoMigrate)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Classifier: classifier.New(&cfg.Classifier, logger),
	}, nil
}

// CleanupApp releases the components acquired by InitializeApp.
func (a *App) CleanupApp() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
}
