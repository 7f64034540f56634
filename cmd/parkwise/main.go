package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/parkwise"
	"github.com/menta2k/parkwise/internal/config"
	"github.com/menta2k/parkwise/internal/logging"
	"github.com/menta2k/parkwise/internal/utils"
)

var (
	configPath string
	verbose    bool
	backend    string
	model      string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parkwise",
	Short: "ParkWise - parking spot recommendations and photo spot locator",
	Long: `ParkWise recommends free parking spots in a demo lot by vehicle type,
covered space and exit proximity, and describes where a car is parked from a
photo using a vision model (Gemini, Ollama or llama.cpp).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}

		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded",
			zap.String("backend", cfg.Locator.Backend),
			zap.String("model", cfg.Locator.Model),
			zap.Int64("seed", cfg.Lot.Seed))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "parkwise %s\n", parkwise.Version)
	},
}

// loadConfig reads the config file when one exists, then applies .env and
// environment overrides, then command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()

	path := configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("backend") {
		if c.Locator.Backend != backend && !cmd.Flags().Changed("model") {
			c.Locator.Model = config.DefaultModel(backend)
		}
		c.Locator.Backend = backend
	}
	if cmd.Flags().Changed("model") {
		c.Locator.Model = model
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file, JSON or YAML (default: "+config.GetConfigPath()+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "vision backend: gemini, ollama or llamacpp")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "vision model name")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(spotsCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
