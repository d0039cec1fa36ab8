package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "musex",
	Short: "Music exploration backend",
	Long: `musex serves the spatial graph view of the music corpus and runs the
batch jobs that feed it: dataset loading, dimension statistics, supergenre
labeling and snapshot precomputation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to musex.yaml (default: environment only)")
	rootCmd.AddCommand(serveCmd, precomputeCmd, etlCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.LoadFromEnv()
	}
	return config.Load(configPath)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
