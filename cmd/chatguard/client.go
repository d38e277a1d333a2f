package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/config"
	"github.com/Veraticus/chatguard/internal/storage"
)

// newClient creates a detection client from configuration.
// This function is shared by every command that talks to the backend.
func newClient(opts ...api.Option) (*api.Client, error) {
	cfg, err := config.LoadAPIConfig(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid backend settings, check --api-url and --timeout", err)
	}

	opts = append([]api.Option{api.WithLogger(slog.Default())}, opts...)
	client, err := api.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection client: %w", err)
	}

	slog.Debug("Detection client ready",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)
	return client, nil
}

// openHistory opens and migrates the chat history database.
func openHistory(ctx context.Context) (*storage.SQLiteStorage, error) {
	path := config.StoragePath(viper.GetViper())
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, common.NewUserError("could not open chat history at "+path, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("chat history at "+path+" could not be upgraded", err)
	}
	return store, nil
}

// thresholdFlag resolves the --threshold flag, falling back to configuration.
func thresholdFlag(threshold float64, changed bool) (float64, error) {
	if changed {
		return threshold, nil
	}
	detection, err := config.LoadDetection(viper.GetViper())
	if err != nil {
		return 0, err
	}
	return detection.Threshold, nil
}
