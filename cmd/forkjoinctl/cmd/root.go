package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vhlavac/forkjoin/logs"
)

// fileConfig is the shape of the optional --config YAML file: CLI-only
// configuration, never consumed by the forkjoin package itself.
type fileConfig struct {
	Workers      int    `yaml:"workers"`
	InitialPools int    `yaml:"initialPools"`
	LogLevel     string `yaml:"logLevel"`
}

var (
	workers      int
	initialPools int
	logLevel     string
	logFormat    string
	configPath   string
	verbose      bool
	quiet        bool

	loadedConfig fileConfig
)

var rootCmd = &cobra.Command{
	Use:   "forkjoinctl",
	Short: "Drive the forkjoin fork/join scheduler from the command line",
	Long: `forkjoinctl constructs a forkjoin.Scheduler and runs one of its
built-in demonstration workloads: a binary spawn tree, a record/replay
cycle, or a long-lived metrics server.`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		if configPath != "" {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("reading config %q: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, &loadedConfig); err != nil {
				return fmt.Errorf("parsing config %q: %w", configPath, err)
			}
			if loadedConfig.Workers > 0 && !c.Flags().Changed("workers") {
				workers = loadedConfig.Workers
			}
			if loadedConfig.InitialPools > 0 && !c.Flags().Changed("initial-pools") {
				initialPools = loadedConfig.InitialPools
			}
			if loadedConfig.LogLevel != "" && !c.Flags().Changed("log-level") {
				logLevel = loadedConfig.LogLevel
			}
		}
		if verbose {
			logLevel = "debug"
		}
		logs.Initialize(parseLevel(logLevel), parseFormat(logFormat))
		if quiet {
			logs.Log.Disable()
		}
		return nil
	},
}

func parseLevel(level string) logs.Level {
	switch level {
	case "debug":
		return logs.LevelDebug
	case "warn":
		return logs.LevelWarn
	case "error":
		return logs.LevelError
	default:
		return logs.LevelInfo
	}
}

func parseFormat(format string) logs.Option {
	if format == "json" {
		return logs.WithFormat(logs.JSONFormat)
	}
	return logs.WithFormat(logs.TextFormat)
}

// Execute runs the root command, exiting the process with a non-zero
// status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disable logging entirely")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file (workers, initialPools, logLevel)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "worker count (0 = runtime.GOMAXPROCS)")
	rootCmd.PersistentFlags().IntVar(&initialPools, "initial-pools", 1, "number of pools to pre-allocate")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
}
