package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"peopleops/internal/assist"
	"peopleops/internal/config"
	"peopleops/internal/document"
	"peopleops/internal/retrieval"
	"peopleops/internal/secrets"
	"peopleops/internal/store"
	"peopleops/internal/usage"
)

// app holds the assembled subsystems a command needs. Commands that only
// touch the database use openStore instead.
type app struct {
	cfg       *config.Config
	store     *store.Store
	docs      *document.Store
	retriever *retrieval.Retriever
	tracker   *usage.Tracker
	assistant *assist.Assistant
	cred      secrets.Credential
}

// buildApp assembles the full stack from the workspace configuration.
// A missing credential is not an error; the assistant degrades.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFromWorkspace(workspace)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.New(cfg.AbsDatabasePath(workspace))
	if err != nil {
		return nil, err
	}

	docs, err := document.NewStore(cfg.AbsUploadDir(workspace), cfg.AbsChunkStore(workspace),
		cfg.Documents.ChunkSizeWords, cfg.Documents.ChunkOverlap)
	if err != nil {
		st.Close()
		return nil, err
	}

	retriever := retrieval.New(docs)

	tracker, err := usage.NewTracker(workspace)
	if err != nil {
		st.Close()
		return nil, err
	}

	cred, credErr := secrets.Resolve(workspace)
	if credErr != nil {
		logger.Warn("Secrets file unreadable", zap.Error(credErr))
	}
	apiKey := ""
	if cfg.Assistant.Enabled {
		apiKey = cred.Key
	}

	assistant, err := assist.New(ctx, assist.Config{
		APIKey:     apiKey,
		Model:      cfg.Assistant.Model,
		MaxRetries: cfg.Assistant.MaxRetries,
		Timeout:    cfg.GetAssistantTimeout(),
		Limits: retrieval.ContextLimits{
			MaxChunks: cfg.Documents.MaxContextChunks,
			MaxChars:  cfg.Documents.MaxContextChars,
		},
	}, retriever, tracker)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		store:     st,
		docs:      docs,
		retriever: retriever,
		tracker:   tracker,
		assistant: assistant,
		cred:      cred,
	}, nil
}

// Close flushes pending usage data and releases the database.
func (a *app) Close() {
	if a.tracker != nil {
		_ = a.tracker.Save()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// openStore opens just the database for data-only commands.
func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.LoadFromWorkspace(workspace)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(cfg.AbsDatabasePath(workspace))
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}
