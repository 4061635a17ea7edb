package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/pkg/version"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	hostURL    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "logia",
	Short: "LOGIA - multi-agent disruption dispatcher",
	Long: `LOGIA routes free-text disruption scenarios (food delivery delays, cab
rerouting, audio safety alerts) to specialist agents discovered over JSON-RPC.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&hostURL, "host-url", "", "Host base URL for client commands (default derived from host.listen)")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(incidentsCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	})
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
