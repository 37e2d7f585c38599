package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chitieu/finbot/config"
	"github.com/chitieu/finbot/logger"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "finbot",
		Short: "Vietnamese conversational personal-finance assistant",
		Long: `finbot records expenses from casual Vietnamese chat ("hôm nay ăn uống 50k"),
summarizes and ranks monthly spending, forecasts the month-end total against
a budget and answers Bitcoin / USD rate questions.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(forecastCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	// Load has read .env, so APP_ENV from either source applies.
	logger.Init(cfg.Env)
	return nil
}
