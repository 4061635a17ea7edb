package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/daemon"
	"github.com/alucardeht/logia/internal/dashboard"
	"github.com/alucardeht/logia/internal/host"
	"github.com/alucardeht/logia/internal/journal"
	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/registry"
	"github.com/alucardeht/logia/internal/router"
	"github.com/alucardeht/logia/internal/specialist"
)

var log = logger.ForComponent("cli")

var hostListen string

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the Host",
	Long: `Run the Host: discover the configured specialists, build the tool
registry and serve the dispatch API.`,
	RunE: runHost,
}

func init() {
	hostCmd.Flags().StringVar(&hostListen, "listen", "", "Listen address (overrides host.listen)")
}

func runHost(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if hostListen != "" {
		cfg.Host.Listen = hostListen
	}

	metrics := host.NewMetrics()
	reg := registry.New()
	dial := func(s config.Specialist) registry.Specialist {
		return specialist.New(s.Name, s.Address, cfg.Host.RequestTimeout)
	}
	registry.Discover(ctx, reg, cfg.Specialists, metrics.InstrumentDial(dial))
	log.Info("registry built", "tools", reg.Names())

	rt, err := buildRouter(ctx, cfg, reg)
	if err != nil {
		return err
	}

	var j *journal.Journal
	if cfg.Host.JournalPath != "" {
		j, err = journal.Open(cfg.Host.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
	}

	srv := host.NewServer(host.Options{
		Router:         rt,
		Registry:       reg,
		Dashboard:      dashboard.New(),
		Metrics:        metrics,
		Journal:        j,
		Notifier:       notify.NewTwilio(cfg.Credentials),
		AlertOnHigh:    cfg.Host.AlertOnHigh,
		MaxAudioBytes:  cfg.Host.MaxAudioBytes,
		RequestTimeout: cfg.Host.RequestTimeout,
	})

	return daemon.New(daemon.Options{
		Name:    "host",
		Listen:  cfg.Host.Listen,
		Handler: srv,
		PIDFile: cfg.Host.PIDFile,
	}).Run(ctx)
}

// buildRouter returns nil when no classifier can be built and the keyword
// fallback is disabled.
func buildRouter(ctx context.Context, cfg *config.Config, reg *registry.Registry) (*router.Router, error) {
	timeouts := router.TimeoutConfig{Classify: cfg.LLM.Timeout, Forward: cfg.Host.RequestTimeout}

	model, err := llm.New(ctx, cfg.LLM, cfg.Credentials)
	switch {
	case err == nil:
		return router.NewRouterWithConfig(router.NewLLMClassifier(model), reg, timeouts), nil
	case errors.Is(err, llm.ErrNoAPIKey) && cfg.Host.KeywordFallback:
		log.Warn("no llm api key, routing with the keyword classifier", "provider", cfg.LLM.Provider)
		return router.NewRouterWithConfig(router.NewKeywordClassifier(), reg, timeouts), nil
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Error("no llm api key and keyword fallback disabled, routing unavailable", "provider", cfg.LLM.Provider)
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
}
