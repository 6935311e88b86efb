package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/adapter/storage"
	"github.com/rl1809/stock-tracker/internal/config"
	"github.com/rl1809/stock-tracker/internal/core/service"
	"github.com/rl1809/stock-tracker/internal/platform/logging"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "inventory",
	Short:         "Track item quantities and persist them as JSON snapshots",
	Long:          "Run without a subcommand to execute the built-in demo against ./inventory.json.",
	RunE:          runDemoCmd,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

// --- Demo ---

// The demo takes no flags or environment: console logging, file storage,
// inventory.json in the working directory.
func runDemoCmd(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New("info", logging.FormatConsole)
	if err != nil {
		return err
	}
	defer logger.Sync()

	inventory := service.NewInventoryService(storage.NewFileAdapter(), logger)
	return runDemo(cmd.Context(), inventory, cmd.OutOrStdout(), logger, service.DefaultSnapshot)
}

func runDemo(ctx context.Context, inventory *service.InventoryService, out io.Writer, logger *zap.Logger, snapshot string) error {
	var log []string
	log = inventory.Add("apple", 10, log)
	log = inventory.Add("banana", 3, log)
	log = inventory.Add("orange", 5, log)
	inventory.Remove("apple", 2)
	inventory.Remove("mango", 1)

	fmt.Fprintf(out, "Apple stock: %d\n", inventory.Quantity("apple"))
	fmt.Fprintf(out, "Low items: %v\n", inventory.ListBelow(service.DefaultThreshold))

	if err := inventory.Save(ctx, snapshot); err != nil {
		return err
	}
	if err := inventory.Load(ctx, snapshot); err != nil {
		return err
	}
	if err := inventory.Report(out); err != nil {
		return err
	}

	logger.Info("session logs", zap.Strings("entries", log))
	return nil
}

// --- Report ---

var reportThreshold int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the configured snapshot and its low-stock items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		repo, closeRepo, err := openRepository(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeRepo()

		inventory := service.NewInventoryService(repo, logger)
		if err := inventory.Load(ctx, cfg.Snapshot); err != nil {
			return err
		}

		threshold := cfg.LowStockThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = reportThreshold
		}

		out := cmd.OutOrStdout()
		if err := inventory.Report(out); err != nil {
			return err
		}
		fmt.Fprintf(out, "Low items: %v\n", inventory.ListBelow(threshold))
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportThreshold, "threshold", service.DefaultThreshold, "low-stock threshold")
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.ServiceName, config.ServiceVersion)
	},
}
