package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unit-finder/internal/config"
	"unit-finder/internal/domain"
	"unit-finder/internal/platform/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	flagMaxResults int
	flagRadius     int
	flagOutput     string
)

var rootCmd = &cobra.Command{
	Use:           "finder",
	Short:         "Find nearby blood treatment units",
	Long:          "Locates the device or a named city, asks the unit-search backend for nearby treatment units and shows them ranked by distance.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("max-results") {
			c.API.MaxResults = flagMaxResults
		}
		if flags.Changed("radius") {
			c.API.RadiusMeters = flagRadius
		}
		if flags.Changed("output") {
			c.Output = flagOutput
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg = c

		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		zap.ReplaceGlobals(logger)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagMaxResults, "max-results", 0, "cap on listed units (0 = no cap)")
	pf.IntVar(&flagRadius, "radius", 0, "search radius in meters")
	pf.StringVarP(&flagOutput, "output", "o", "", "view output: text or geojson")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, domain.DisplayMessage(err))
		os.Exit(1)
	}
}
