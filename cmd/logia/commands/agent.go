package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/logia/internal/agents/cab"
	"github.com/alucardeht/logia/internal/agents/food"
	"github.com/alucardeht/logia/internal/agents/safety"
	"github.com/alucardeht/logia/internal/daemon"
	"github.com/alucardeht/logia/internal/dataset"
	"github.com/alucardeht/logia/internal/geo"
	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/mcp"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/sentiment"
	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/internal/watcher"
)

var (
	agentListen  string
	agentPIDFile string
)

var agentCmd = &cobra.Command{
	Use:       "agent {food|cab|safety}",
	Short:     "Run one specialist agent",
	Long:      `Run a specialist agent exposing its single tool over JSON-RPC (initialize, tools/list, tools/call).`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"food", "cab", "safety"},
	RunE:      runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentListen, "listen", "", "Listen address (overrides agents.<name>.listen)")
	agentCmd.Flags().StringVar(&agentPIDFile, "pid-file", "", "Refuse to start while another instance holds this PID file")
}

type agentSpec struct {
	server string
	listen string
	tool   tools.Tool
	close  func() error
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	spec, err := buildAgent(ctx, args[0])
	if err != nil {
		return err
	}
	if spec.close != nil {
		defer spec.close()
	}
	if agentListen != "" {
		spec.listen = agentListen
	}

	reg := tools.NewRegistry()
	if err := reg.Register(spec.tool); err != nil {
		return err
	}

	return daemon.New(daemon.Options{
		Name:    spec.server,
		Listen:  spec.listen,
		Handler: mcp.NewServer(spec.server, reg),
		PIDFile: agentPIDFile,
	}).Run(ctx)
}

func buildAgent(ctx context.Context, name string) (*agentSpec, error) {
	notifier := notify.NewTwilio(cfg.Credentials)

	switch name {
	case "food":
		model, err := optionalModel(ctx)
		if err != nil {
			return nil, err
		}
		store := dataset.Open(cfg.Agents.Food.DataPath)
		if err := store.Watch(ctx, watcher.DefaultConfig()); err != nil {
			log.Warn("dataset watch unavailable, reading the file on every lookup", "path", cfg.Agents.Food.DataPath, "error", err)
		}
		agent := food.New(food.Config{
			CriticalPrepMins: cfg.Agents.Food.CriticalPrepMins,
			Alternatives:     cfg.Agents.Food.Alternatives,
		}, store, model, notifier)
		return &agentSpec{server: "FoodDelayServer", listen: cfg.Agents.Food.Listen, tool: food.NewTool(agent), close: store.Close}, nil

	case "cab":
		model, err := llm.New(ctx, cfg.LLM, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("cab agent: %w", err)
		}
		maps, err := geo.NewGoogleMaps(cfg.Credentials.MapsAPIKey)
		if err != nil {
			return nil, fmt.Errorf("cab agent: %w", err)
		}
		rates := cab.Rates{
			BaseFare:     cfg.Agents.Cab.BaseFare,
			PerKilometer: cfg.Agents.Cab.PerKilometer,
			PerMinute:    cfg.Agents.Cab.PerMinute,
		}
		agent := cab.New(rates, model, maps, notifier)
		return &agentSpec{server: "CabReroutingServer", listen: cfg.Agents.Cab.Listen, tool: cab.NewTool(agent)}, nil

	case "safety":
		model, err := llm.New(ctx, cfg.LLM, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("safety agent: %w", err)
		}
		agent := safety.New(model, sentiment.NewVader(), notifier, cfg.Agents.Safety.RiskWords)
		return &agentSpec{server: "SafetyServer", listen: cfg.Agents.Safety.Listen, tool: safety.NewTool(agent)}, nil
	}
	return nil, fmt.Errorf("unknown agent %q", name)
}

// optionalModel returns nil without error when no key is configured.
func optionalModel(ctx context.Context) (llm.Model, error) {
	model, err := llm.New(ctx, cfg.LLM, cfg.Credentials)
	if errors.Is(err, llm.ErrNoAPIKey) {
		log.Warn("no llm api key, order IDs are matched from the dataset only")
		return nil, nil
	}
	return model, err
}
