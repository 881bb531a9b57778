package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/calloway/ledgersieve/internal/anomaly"
	"github.com/calloway/ledgersieve/internal/common"
	"github.com/calloway/ledgersieve/internal/judge"
	"github.com/calloway/ledgersieve/internal/pipeline"
	"github.com/calloway/ledgersieve/internal/rules"
	"github.com/calloway/ledgersieve/internal/storage"
)

// initStorage opens the SQLite database and runs any pending migrations.
// Callers must Close the returned storage.
func initStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "sieve", "sieve.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open ledger database at %s", dbPath), err)
	}

	if err := store.Migrate(rootCmd.Context()); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("could not migrate ledger database", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

// newJudge builds the AI judge from config. Without an API key it returns
// a disabled judge, so AI-conditioned rules simply never apply.
func newJudge() judge.Judge {
	apiKey := viper.GetString("judge.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		slog.Warn("No OpenRouter API key configured, AI rule conditions will not apply")
		return judge.Disabled{}
	}

	j, err := judge.NewOpenRouterJudge(judge.Config{
		APIKey:  apiKey,
		Model:   viper.GetString("judge.model"),
		Referer: viper.GetString("judge.referer"),
	})
	if err != nil {
		slog.Warn("Failed to configure judge, AI rule conditions will not apply", "error", err)
		return judge.Disabled{}
	}
	return j
}

// newPipeline assembles the classification pipeline over the given storage.
func newPipeline(store *storage.SQLiteStorage) *pipeline.Pipeline {
	logger := slog.Default()
	engine := rules.New(newJudge(), logger)
	detector := anomaly.New(logger)
	return pipeline.New(store, engine, detector, logger)
}
