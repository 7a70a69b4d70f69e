package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"board-sync/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boardsync",
		Short: "Board state sync server",
		Long: `boardsync serves per-user kanban boards over HTTP and keeps every open
session of a user in sync through Redis pub/sub.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

func execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
