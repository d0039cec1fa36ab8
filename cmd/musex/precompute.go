package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/graph"
	"github.com/musexhq/musex/internal/precompute"
	"github.com/musexhq/musex/internal/storage"
	"github.com/musexhq/musex/pkg/models"
)

var (
	precomputeTypes  []string
	precomputePairs  []string
	precomputeLevels []int
	precomputeOffset int
	precomputeLimit  int
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Precompute graph snapshots",
	Long: `Precompute filters every (dimension pair, entity type, zoom level) tuple
and stores the surviving nodes and links. With no flags, the full cross
product is rebuilt.`,
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

		job := precompute.Job{
			Levels: precomputeLevels,
			Offset: precomputeOffset,
			Limit:  precomputeLimit,
		}
		for _, raw := range precomputeTypes {
			t, err := models.ParseEntityType(raw)
			if err != nil {
				return fmt.Errorf("--types: %w: %q", err, raw)
			}
			job.Types = append(job.Types, t)
		}
		for _, raw := range precomputePairs {
			parts := strings.SplitN(raw, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("--pair %q: want dimx:dimy", raw)
			}
			job.DimPairs = append(job.DimPairs, [2]string{parts[0], parts[1]})
		}

		engine := precompute.NewEngine(
			storage.NewPostgresEntityRepository(db),
			storage.NewPostgresSnapshotRepository(db),
			storage.NewPostgresStatsRepository(db),
			graph.NewZoomLevels(cfg.Graph.ZoomLevels, cfg.Graph.MaxRadius),
			logger,
		)

		report, err := engine.Run(cmd.Context(), job)
		if err != nil {
			return err
		}
		logger.Info("precompute done",
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", len(report.Failed)),
			zap.Duration("elapsed", report.Elapsed))
		if len(report.Failed) > 0 {
			for _, f := range report.Failed {
				logger.Warn("tuple failed", zap.Any("key", f.Key), zap.Error(f.Err))
			}
			return fmt.Errorf("%d tuples failed", len(report.Failed))
		}
		return nil
	},
}

func init() {
	precomputeCmd.Flags().StringSliceVar(&precomputeTypes, "types", nil, "entity types to precompute (genre, artist, track)")
	precomputeCmd.Flags().StringArrayVar(&precomputePairs, "pair", nil, "dimension pair dimx:dimy (repeatable; default all pairs)")
	precomputeCmd.Flags().IntSliceVar(&precomputeLevels, "levels", nil, "zoom levels to precompute (default all)")
	precomputeCmd.Flags().IntVar(&precomputeOffset, "offset", 0, "entity offset for partial runs")
	precomputeCmd.Flags().IntVar(&precomputeLimit, "limit", 0, "entity limit for partial runs (0 = all)")
}
