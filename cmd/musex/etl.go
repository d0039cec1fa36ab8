package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/etl"
	"github.com/musexhq/musex/internal/storage"
)

var (
	etlDataDir  string
	etlClusters int
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Dataset loading and derivation jobs",
}

var etlLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the Kaggle CSV exports and derive label stats",
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

		sum, err := etl.NewLoader(db, logger).LoadDir(cmd.Context(), etlDataDir)
		if err != nil {
			return err
		}
		logger.Info("dataset loaded",
			zap.Int("tracks", sum.Tracks),
			zap.Int("genres", sum.Genres),
			zap.Int("artists", sum.Artists),
			zap.Int("years", sum.Years))

		if err := etl.DeriveLabelStats(cmd.Context(), db, logger); err != nil {
			return err
		}
		return etl.AttachLabelsToGenres(cmd.Context(), db, logger)
	},
}

var etlMinMaxCmd = &cobra.Command{
	Use:   "minmax",
	Short: "Recompute the cached dimension min/max statistics",
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

		if err := storage.NewPostgresStatsRepository(db).UpdateDimMinMax(cmd.Context()); err != nil {
			return err
		}
		logger.Info("dimension statistics updated")
		return nil
	},
}

var etlSuperGenresCmd = &cobra.Command{
	Use:   "supergenres",
	Short: "Cluster genres and assign supergenre labels and colors",
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

		report, err := etl.NewSuperGenreLabeler(db, etlClusters, logger).Run(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("supergenre labeling done",
			zap.Int64("genres", report.Genres),
			zap.Int64("artists", report.Artists),
			zap.Int64("tracks", report.Tracks))
		return nil
	},
}

func init() {
	etlLoadCmd.Flags().StringVar(&etlDataDir, "dir", "data", "directory holding the dataset CSV files")
	etlSuperGenresCmd.Flags().IntVar(&etlClusters, "k", etl.DefaultClusterCount, "cluster count for genre grouping")
	etlCmd.AddCommand(etlLoadCmd, etlMinMaxCmd, etlSuperGenresCmd)
}
