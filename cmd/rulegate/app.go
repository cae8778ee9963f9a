// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/activation"
	"github.com/autobrr/rulegate/internal/api"
	"github.com/autobrr/rulegate/internal/backend"
	"github.com/autobrr/rulegate/internal/buildinfo"
	"github.com/autobrr/rulegate/internal/config"
	"github.com/autobrr/rulegate/internal/crypto"
	"github.com/autobrr/rulegate/internal/database"
	"github.com/autobrr/rulegate/internal/metrics"
	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/rulelist"
	"github.com/autobrr/rulegate/internal/trackericons"
	"github.com/autobrr/rulegate/internal/trackers"
)

// application owns the wired component graph and the database handle.
type application struct {
	db     *database.DB
	server *api.Server
	client *backend.Client
}

func newApplication(ctx context.Context, cfg *config.AppConfig) (*application, error) {
	db, err := database.Open(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	encryptor := crypto.NewAESEncryptor(cfg.Config.SessionSecret)
	instanceStore := models.NewInstanceStore(db, encryptor)
	customizationStore := models.NewTrackerCustomizationStore(db)

	client := backend.NewClient(backend.Config{
		Host:      cfg.Config.BackendURL,
		APIKey:    cfg.Config.BackendAPIKey,
		Timeout:   cfg.Config.BackendTimeout,
		UserAgent: buildinfo.UserAgent,
	})

	if err := client.CheckCompatibility(ctx); err != nil {
		// The backend may simply not be up yet; readiness keeps checking.
		log.Warn().Err(err).Msg("backend compatibility check failed at startup")
	}

	resolver := trackers.NewResolver()
	if customizations, err := customizationStore.List(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to seed tracker resolver from stored customizations")
	} else {
		resolver.Update(customizations)
	}

	ruleList := rulelist.NewManager(client)
	activationManager := activation.NewManager(client, ruleList.Invalidate)
	inventory := trackers.NewInventory(client, instanceStore)
	collector := metrics.NewCollector()

	var iconService *trackericons.Service
	if cfg.Config.TrackerIconsFetchEnabled {
		iconService, err = trackericons.NewService(cfg.GetDataDir(), buildinfo.UserAgent)
		if err != nil {
			log.Warn().Err(err).Msg("tracker icon service disabled")
			iconService = nil
		}
	}

	server := api.NewServer(&api.Dependencies{
		Config:             cfg,
		BackendClient:      client,
		RuleList:           ruleList,
		Activation:         activationManager,
		Resolver:           resolver,
		Inventory:          inventory,
		CustomizationStore: customizationStore,
		InstanceStore:      instanceStore,
		IconService:        iconService,
		Metrics:            collector,
	})

	return &application{
		db:     db,
		server: server,
		client: client,
	}, nil
}

func (a *application) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

func (a *application) Close() {
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
