package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/theleywin/prolinka/src/config"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != config.BackendMongo {
			return errs.Errorf(errs.EINVALID, "migrate requires storage.backend=%s", config.BackendMongo)
		}
		logger := lib.GetLogger()
		ctx := cmd.Context()

		client, err := lib.ConnectDB(ctx, cfg.Mongo, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}()

		if err := lib.EnsureIndexes(ctx, client.Database(cfg.Mongo.Database), logger); err != nil {
			return err
		}
		logger.Info("Indexes are up to date", zap.String("database", cfg.Mongo.Database))
		return nil
	},
}
