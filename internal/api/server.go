// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api wires the HTTP surface of the rule editor gateway.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/rulegate/internal/activation"
	"github.com/autobrr/rulegate/internal/api/handlers"
	"github.com/autobrr/rulegate/internal/api/middleware"
	"github.com/autobrr/rulegate/internal/backend"
	"github.com/autobrr/rulegate/internal/config"
	"github.com/autobrr/rulegate/internal/metrics"
	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/rulelist"
	"github.com/autobrr/rulegate/internal/trackericons"
	"github.com/autobrr/rulegate/internal/trackers"
)

// compressMinSize is the smallest response body worth compressing.
const compressMinSize = 1024

// Dependencies collects everything the router needs.
type Dependencies struct {
	Config *config.AppConfig

	BackendClient      *backend.Client
	RuleList           *rulelist.Manager
	Activation         *activation.Manager
	Resolver           *trackers.Resolver
	Inventory          *trackers.Inventory
	CustomizationStore *models.TrackerCustomizationStore
	InstanceStore      *models.InstanceStore
	IconService        *trackericons.Service
	Metrics            *metrics.Collector
}

type Server struct {
	deps *Dependencies
}

func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Compress(compressMinSize))

	cfg := s.deps.Config.Config
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	rulesHandler := handlers.NewRulesHandler(s.deps.BackendClient, s.deps.RuleList, s.deps.Resolver, s.deps.Metrics)
	activationHandler := handlers.NewActivationHandler(s.deps.Activation, s.deps.RuleList, s.deps.Metrics)
	optionsHandler := handlers.NewTrackerOptionsHandler(s.deps.Inventory, s.deps.Resolver, s.deps.CustomizationStore)
	customizationHandler := handlers.NewTrackerCustomizationHandler(s.deps.CustomizationStore, s.refreshResolver)
	instancesHandler := handlers.NewInstancesHandler(s.deps.InstanceStore)
	versionHandler := handlers.NewVersionHandler()

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/liveness", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/health/readiness", s.readiness)
		r.Get("/version", versionHandler.Get)

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", instancesHandler.List)
			r.Post("/", instancesHandler.Create)

			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/", instancesHandler.Get)
				r.Put("/", instancesHandler.Update)
				r.Delete("/", instancesHandler.Delete)

				r.Get("/tracker-options", optionsHandler.List)

				r.Route("/rules", func(r chi.Router) {
					r.Get("/", rulesHandler.List)
					r.Post("/", rulesHandler.Create)
					r.Put("/reorder", rulesHandler.Reorder)

					r.Route("/activation", func(r chi.Router) {
						r.Post("/", activationHandler.Begin)
						r.Route("/{ruleID}", func(r chi.Router) {
							r.Get("/", activationHandler.Snapshot)
							r.Post("/more", activationHandler.LoadMore)
							r.Post("/confirm", activationHandler.Confirm)
							r.Post("/cancel", activationHandler.Cancel)
						})
					})

					r.Route("/{ruleID}", func(r chi.Router) {
						r.Put("/", rulesHandler.Update)
						r.Delete("/", rulesHandler.Delete)
						r.Get("/form", rulesHandler.GetForm)
						r.Post("/duplicate", rulesHandler.Duplicate)
					})
				})
			})
		})

		r.Post("/rules/switch-action", rulesHandler.SwitchAction)

		r.Route("/tracker-customizations", func(r chi.Router) {
			r.Get("/", customizationHandler.List)
			r.Post("/", customizationHandler.Create)
			r.Put("/{id}", customizationHandler.Update)
			r.Delete("/{id}", customizationHandler.Delete)
		})

		if s.deps.IconService != nil {
			iconsHandler := handlers.NewTrackerIconsHandler(s.deps.IconService)
			r.Get("/tracker-icons", iconsHandler.List)
			r.Get("/tracker-icons/{domain}", iconsHandler.Get)
		}
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	if base := strings.Trim(cfg.BaseURL, "/"); base != "" {
		outer := chi.NewRouter()
		outer.Mount("/"+base, r)
		return outer
	}
	return r
}

// readiness reports whether the evaluation backend is reachable and
// compatible.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.deps.BackendClient.CheckCompatibility(ctx); err != nil {
		handlers.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// refreshResolver rebuilds the tracker resolver index from the stored
// customizations. Called after customization mutations.
func (s *Server) refreshResolver() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customizations, err := s.deps.CustomizationStore.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to reload tracker customizations for resolver")
		return
	}
	s.deps.Resolver.Update(customizations)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.deps.Config.Config

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
