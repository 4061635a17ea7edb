package safety

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
)

const ToolName = "safety/analyzeAudio"

type Tool struct {
	agent *Agent
}

func NewTool(agent *Agent) *Tool {
	return &Tool{agent: agent}
}

func (t *Tool) Name() string  { return ToolName }
func (t *Tool) Title() string { return "Analyze Audio for Safety Threats" }

func (t *Tool) Description() string {
	return "Transcribe an audio clip, score its sentiment, classify the threat as SAFE, MEDIUM or HIGH and alert responders accordingly."
}

func (t *Tool) Annotations() map[string]bool {
	return tools.NotifyingAnnotations()
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"audio_data": {"type": "string", "description": "Audio bytes, base64 encoded"},
			"encoding": {"type": "string", "enum": ["base64"]},
			"file_format": {"type": "string", "description": "MIME type of the audio, e.g. audio/wav"}
		},
		"required": ["audio_data"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) (*protocol.ToolResult, error) {
	var in Input
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, tools.NewInvalidArgumentsError(ToolName, err)
		}
	}
	if in.AudioData == "" {
		return nil, tools.NewInvalidArgumentsError(ToolName, ErrNoAudio)
	}

	report, err := t.agent.Run(ctx, in)
	if err != nil {
		return protocol.ErrorResult(fmt.Sprintf("AGENT EXECUTION FAILED\nError: %v", err)), nil
	}
	return protocol.JSONResult(fmt.Sprintf("Threat level %s", report.AlertLevel), report)
}
