package main

import (
	"fmt"
	"os"

	"docubot-be/internal/config"
	"docubot-be/internal/model"
	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/database"

	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"
)

const module = "Migrate"

func main() {
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Production: cfg.IsProduction(),
		Level:      cfg.App.LogLevel,
	})
	defer func() { _ = sysLogger.Sync() }()

	var verbose bool
	dims := cfg.Ai.EmbeddingDimensions

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Create the passages table and its vector index",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if cfg.Database.Connection == "" {
				return fmt.Errorf("DB_CONNECTION_STRING is not set")
			}

			level := gormlogger.Warn
			if verbose {
				level = gormlogger.Info
			}
			db, err := database.NewGormDBFromDSN(cfg.Database.Connection,
				database.WithLogLevel(level),
				database.WithPool(database.PoolConfig{MaxIdleConns: 1, MaxOpenConns: 2, ConnMaxLifetime: database.DefaultPool.ConnMaxLifetime}),
			)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			sysLogger.Info(module, "Migrating passages table", map[string]interface{}{"dimensions": dims})
			if err := database.MigrateVectorSchema(db, dims, &model.Passage{}); err != nil {
				return err
			}
			sysLogger.Info(module, "Migration complete", nil)
			return nil
		},
	}
	cmd.Flags().IntVar(&dims, "dims", dims, "embedding width of the vector column")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every SQL statement")

	if err := cmd.Execute(); err != nil {
		sysLogger.Error(module, "Migration failed", map[string]interface{}{"error": err.Error()})
		_ = sysLogger.Sync()
		fmt.Fprintln(os.Stderr, "Migration failed:", err)
		os.Exit(1)
	}
}
