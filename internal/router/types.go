package router

import (
	"encoding/json"
)

type Department string

const (
	DepartmentSafety Department = "safety_agent"
	DepartmentFood   Department = "food_delay_agent"
	DepartmentCab    Department = "cab_rerouting_agent"
)

var Departments = []Department{DepartmentSafety, DepartmentFood, DepartmentCab}

const (
	ToolSafety = "safety/analyzeAudio"
	ToolFood   = "food/resolveDelay"
	ToolCab    = "cab/rerouteRequest"
)

var toolTable = map[Department]string{
	DepartmentSafety: ToolSafety,
	DepartmentFood:   ToolFood,
	DepartmentCab:    ToolCab,
}

// ToolFor maps a department label to the tool that serves it.
func ToolFor(d Department) (string, bool) {
	tool, ok := toolTable[d]
	return tool, ok
}

type Outcome string

const (
	OutcomeForwarded    Outcome = "forwarded"
	OutcomeToolError    Outcome = "tool_error"
	OutcomeNotConnected Outcome = "not_connected"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeGuidance     Outcome = "guidance"
)

// SpecialistResult is the first content item of the specialist's answer,
// the structured report when there is one, or an error message.
type SpecialistResult struct {
	Type    string          `json:"type,omitempty"`
	Text    string          `json:"text,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	IsError bool            `json:"isError,omitempty"`

	Action  string `json:"action,omitempty"`
	Details string `json:"details,omitempty"`

	Error string `json:"error,omitempty"`
}

type Resolution struct {
	RouterReasoning  string           `json:"router_reasoning"`
	Department       Department       `json:"department"`
	Tool             string           `json:"tool,omitempty"`
	ClassifiedBy     string           `json:"classified_by"`
	Outcome          Outcome          `json:"outcome"`
	SpecialistResult SpecialistResult `json:"specialist_result"`
	LatencyMs        int64            `json:"latency_ms"`
}
