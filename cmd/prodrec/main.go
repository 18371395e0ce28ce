package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rushteam/prodrec/config"
	_ "github.com/rushteam/prodrec/config/builders"
	"github.com/rushteam/prodrec/logging"
)

var (
	configPath  string
	metricsFile string
	settings    *config.Settings

	rootCmd = &cobra.Command{
		Use:   "prodrec",
		Short: "Embedding-based product recommendations: profile updates, batch snapshots and on-demand scoring.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env 不存在时忽略
			_ = godotenv.Load()

			s, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if metricsFile != "" {
				s.Metrics.File = metricsFile
			}
			logging.Init(s.Logging)
			settings = s
			return nil
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env PRODREC_* overrides it)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus text metrics to this file after the command")

	rootCmd.AddCommand(
		newEmbedCmd(),
		newLogEventCmd(),
		newUpdateProfilesCmd(),
		newBatchCmd(),
		newRecommendCmd(),
		newSearchCmd(),
		newBuyCmd(),
		newHistoryCmd(),
		newEvaluateCmd(),
		newShellCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
