package food

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
)

const ToolName = "food/resolveDelay"

type Tool struct {
	agent *Agent
}

func NewTool(agent *Agent) *Tool {
	return &Tool{agent: agent}
}

func (t *Tool) Name() string  { return ToolName }
func (t *Tool) Title() string { return "Resolve Food Delivery Delay" }

func (t *Tool) Description() string {
	return "Resolve a delayed food order: reroute the driver and offer faster restaurants when preparation runs long, otherwise tell the customer how long to wait."
}

func (t *Tool) Annotations() map[string]bool {
	return tools.NotifyingAnnotations()
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"scenario": {
				"type": "string",
				"description": "Free-text description of the delay, ideally including the order ID"
			}
		},
		"required": ["scenario"]
	}`)
}

type input struct {
	Scenario string `json:"scenario"`
}

func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*protocol.ToolResult, error) {
	var in input
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, tools.NewInvalidArgumentsError(ToolName, err)
		}
	}
	if strings.TrimSpace(in.Scenario) == "" {
		return nil, tools.NewInvalidArgumentsError(ToolName, errors.New("scenario is required"))
	}

	report, err := t.agent.Run(ctx, in.Scenario)
	if err != nil {
		return protocol.ErrorResult(fmt.Sprintf("AGENT EXECUTION FAILED\nError: %v", err)), nil
	}
	return protocol.JSONResult(report.Summary, report)
}
