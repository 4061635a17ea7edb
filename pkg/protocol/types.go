package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion,omitempty"`
	ClientInfo      Implementation `json:"clientInfo"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

// Tool describes one capability a specialist serves.
type Tool struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Annotations map[string]bool `json:"annotations,omitempty"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ContentType string

const (
	ContentText ContentType = "text"
	ContentJSON ContentType = "json"
)

type Content struct {
	Type ContentType     `json:"type"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ToolResult is the payload of a successful tools/call. IsError marks an
// answer produced by a pipeline that failed; transport and protocol
// failures never reach this type, they travel as a Fault.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

var ErrNoContent = errors.New("tool result has no matching content")

func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []Content{{Type: ContentText, Text: text}}}
}

func ErrorResult(text string) *ToolResult {
	return &ToolResult{Content: []Content{{Type: ContentText, Text: text}}, IsError: true}
}

// JSONResult encodes v as a json content item, optionally preceded by a
// text summary.
func JSONResult(summary string, v any) (*ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	res := &ToolResult{}
	if summary != "" {
		res.Content = append(res.Content, Content{Type: ContentText, Text: summary})
	}
	res.Content = append(res.Content, Content{Type: ContentJSON, Data: data})
	return res, nil
}

// Text returns the first text item.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if c.Type == ContentText {
			return c.Text
		}
	}
	return ""
}

// Decode unmarshals the first json item into v.
func (r *ToolResult) Decode(v any) error {
	if r == nil {
		return ErrNoContent
	}
	for _, c := range r.Content {
		if c.Type == ContentJSON && len(c.Data) > 0 {
			return json.Unmarshal(c.Data, v)
		}
	}
	return ErrNoContent
}

// First returns the first content item, or an empty item when there is none.
func (r *ToolResult) First() Content {
	if r == nil || len(r.Content) == 0 {
		return Content{}
	}
	return r.Content[0]
}

type HealthResponse struct {
	Status string   `json:"status"`
	Uptime int64    `json:"uptime"`
	Tools  []string `json:"tools"`
}
