// Package router classifies a free-text scenario into a department and
// forwards it to the specialist serving that department's tool.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/registry"
	"github.com/alucardeht/logia/pkg/protocol"
)

var log = logger.ForComponent("router")

type Router struct {
	classifier Classifier
	registry   *registry.Registry
	timeouts   TimeoutConfig
}

func NewRouter(classifier Classifier, reg *registry.Registry) *Router {
	return NewRouterWithConfig(classifier, reg, DefaultTimeoutConfig())
}

func NewRouterWithConfig(classifier Classifier, reg *registry.Registry, timeouts TimeoutConfig) *Router {
	return &Router{
		classifier: classifier,
		registry:   reg,
		timeouts:   timeouts,
	}
}

func (r *Router) Classifier() string {
	return r.classifier.Name()
}

// Resolve classifies scenario and forwards it. Only a classification
// failure is returned as an error; specialist problems are reported inside
// the resolution.
func (r *Router) Resolve(ctx context.Context, scenario string) (*Resolution, error) {
	start := time.Now()
	log.Debug("resolving scenario", "scenario", scenario, "classifier", r.classifier.Name())

	classifyCtx, cancel := WithTimeout(ctx, r.timeouts.Classify)
	dept, err := r.classifier.Classify(classifyCtx, scenario)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("classify scenario: %w", err)
	}

	res := &Resolution{
		RouterReasoning: reasoning(r.classifier.Name(), scenario, dept),
		Department:      dept,
		ClassifiedBy:    r.classifier.Name(),
	}

	tool, ok := ToolFor(dept)
	if !ok {
		return nil, fmt.Errorf("no tool for department %q", dept)
	}
	res.Tool = tool

	switch dept {
	case DepartmentSafety:
		res.Outcome = OutcomeGuidance
		res.SpecialistResult = SpecialistResult{
			Action:  "Routing to Safety Agent.",
			Details: "This requires audio input via the Safety Alert section (POST /process-audio).",
		}
	default:
		r.forward(ctx, res, scenario)
	}

	res.LatencyMs = time.Since(start).Milliseconds()
	log.Info("scenario resolved", "department", dept, "tool", tool, "outcome", res.Outcome, "latency_ms", res.LatencyMs)
	return res, nil
}

func (r *Router) forward(ctx context.Context, res *Resolution, scenario string) {
	caller, ok := r.registry.Lookup(res.Tool)
	if !ok {
		res.Outcome = OutcomeNotConnected
		res.SpecialistResult = SpecialistResult{Error: notConnectedMessage(res.Department)}
		return
	}

	args, err := json.Marshal(map[string]string{"scenario": scenario})
	if err != nil {
		res.Outcome = OutcomeUnavailable
		res.SpecialistResult = SpecialistResult{Error: err.Error()}
		return
	}

	forwardCtx, cancel := WithTimeout(ctx, r.timeouts.Forward)
	defer cancel()

	result, err := caller.CallTool(forwardCtx, res.Tool, args)
	if err != nil {
		fault := protocol.AsFault(err)
		log.Warn("specialist call failed", "tool", res.Tool, "specialist", caller.Name(), "kind", fault.Kind(), "error", fault.Message)
		res.Outcome = OutcomeUnavailable
		res.SpecialistResult = SpecialistResult{Error: fmt.Sprintf("Error from %s: %s", caller.Name(), fault.Message)}
		return
	}

	res.SpecialistResult = firstContent(result)
	if result.IsError {
		res.Outcome = OutcomeToolError
	} else {
		res.Outcome = OutcomeForwarded
	}
}

func firstContent(result *protocol.ToolResult) SpecialistResult {
	first := result.First()
	out := SpecialistResult{
		Type:    string(first.Type),
		Text:    first.Text,
		Data:    first.Data,
		IsError: result.IsError,
	}
	if len(out.Data) == 0 {
		for _, c := range result.Content {
			if c.Type == protocol.ContentJSON {
				out.Data = c.Data
				break
			}
		}
	}
	return out
}

func notConnectedMessage(d Department) string {
	switch d {
	case DepartmentFood:
		return "Food Delay Agent is not connected. Check the specialists configuration and agent status."
	case DepartmentCab:
		return "Cab Rerouting Agent is not connected."
	default:
		return fmt.Sprintf("%s is not connected.", d)
	}
}

func reasoning(classifier, scenario string, d Department) string {
	analysis := "LLM Analysis"
	if classifier != "llm" {
		analysis = "Keyword Analysis"
	}
	return fmt.Sprintf("Input: '%s'\n%s: The user's problem is about '%s'.\nDecision: Routing to the %s.", scenario, analysis, d, d)
}
