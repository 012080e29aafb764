package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/log"
)

const (
	flagConfig  = "config"
	flagLogPath = "log-path"
)

func Start() {
	rootCmd := &cobra.Command{
		Use:          constants.AppPos,
		Short:        "Point of sale backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, constants.AppPos, "config file name inside ./env without extension")
	rootCmd.PersistentFlags().String(flagLogPath, "/var/log/pos.log", "log file, empty logs to stdout only")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logPath, _ := cmd.Flags().GetString(flagLogPath)
		logger := log.InitLogger(logPath).
			With().
			Str(log.KeyAppName, constants.AppPos).
			Str(log.KeyTag, "main "+cmd.Name()).
			Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}
	rootCmd.AddCommand(
		newServeCommand(),
		newStockListenerCommand(),
		newMigrateCommand(),
		newTokenCommand(),
	)

	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(c); err != nil {
		stop()
		os.Exit(1)
	}
}

func configName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString(flagConfig)
	return name
}
