// Package bootstrap assembles the engine's components for the command-line
// tools: configuration, logging, the backing store, and the rating and
// dictionary services.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jwillikers/content-rating/internal/config"
	"github.com/jwillikers/content-rating/internal/database"
	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/logging"
	"github.com/jwillikers/content-rating/internal/rating"
	"github.com/jwillikers/content-rating/internal/spelling"
	"github.com/jwillikers/content-rating/internal/telemetry"
	"github.com/jwillikers/content-rating/internal/tokenizer"
)

// App is the assembled engine.
type App struct {
	Config     *config.Config
	Logger     logging.Logger
	Store      *database.Store
	Dictionary *dictionary.Service
	Rating     *rating.Service
	Telemetry  *telemetry.Provider
}

// LoadConfig loads configuration from CONFIG_PATH or config.yml.
func LoadConfig() (*config.Config, error) {
	return config.Load(config.Path("config.yml"))
}

// CreateLogger builds the service logger from configuration.
func CreateLogger(cfg *config.Config) (logging.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.With(logging.String("service", cfg.Service.Name)), nil
}

// New loads configuration, connects the store, applies the schema, and
// wires the services. Callers own Close.
func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := CreateLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = database.Migrate(ctx, store.DB()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	tp := telemetry.NewProvider()
	dict := dictionary.NewService(store, logger, tp)
	tok := tokenizer.New(spelling.NewCorrector(), logger, tp)
	rate := rating.NewService(tok, dict, store, cfg.Rating, logger, tp)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Dictionary: dict,
		Rating:     rate,
		Telemetry:  tp,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.Store.Close()
}
