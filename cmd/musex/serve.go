package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/api"
	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/internal/graph"
	"github.com/musexhq/musex/internal/recommend"
	"github.com/musexhq/musex/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := buildLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := openDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		stats := storage.NewPostgresStatsRepository(db)
		descriptors, err := stats.DimMinMax(cmd.Context())
		if err != nil {
			return err
		}
		if len(descriptors) == 0 {
			return errors.New("dimension statistics not computed; run `musex etl minmax` first")
		}
		normalizer := dimension.NewNormalizer(descriptors)

		entities := storage.NewPostgresEntityRepository(db)
		snapshots := storage.NewPostgresSnapshotRepository(db)
		states := graph.NewStateStore(cfg.Graph.SessionTTL)
		levels := graph.NewZoomLevels(cfg.Graph.ZoomLevels, cfg.Graph.MaxRadius)

		server := api.NewServer(api.Options{
			Graph:       graph.NewService(snapshots, levels, states, logger),
			Recommend:   recommend.NewService(entities, states, normalizer, logger),
			Entities:    entities,
			Stats:       stats,
			Normalizer:  normalizer,
			Logger:      logger,
			CORSOrigins: cfg.Server.CORSOrigins,
			NodeLimit:   cfg.Graph.DefaultNodeLimit,
		})

		httpServer := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      server.Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.Int("port", cfg.Server.Port))
			errCh <- httpServer.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(ctx)
		}
	},
}
