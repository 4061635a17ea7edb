package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
	"github.com/alucardeht/logia/pkg/version"
)

var log = logger.ForComponent("mcp")

const DefaultCallTimeout = 4 * time.Minute

type Handler struct {
	name        string
	registry    *tools.Registry
	callTimeout time.Duration

	mu          sync.Mutex
	initialized bool
	clientInfo  protocol.Implementation
}

func NewHandler(name string, registry *tools.Registry) *Handler {
	return &Handler{
		name:        name,
		registry:    registry,
		callTimeout: DefaultCallTimeout,
	}
}

// WithCallTimeout bounds every tools/call. Zero disables the bound.
func (h *Handler) WithCallTimeout(d time.Duration) *Handler {
	h.callTimeout = d
	return h
}

func (h *Handler) Handle(ctx context.Context, req *jsonrpc2.Request) *jsonrpc2.Response {
	resp := &jsonrpc2.Response{ID: req.ID}

	var (
		result any
		err    error
	)

	switch req.Method {
	case protocol.MethodInitialize:
		result, err = h.handleInitialize(req)
	case protocol.MethodPing:
		result = struct{}{}
	case protocol.MethodToolsList:
		result = h.handleListTools()
	case protocol.MethodToolsCall:
		result, err = h.handleCallTool(ctx, req)
	case protocol.MethodInitialized:
		h.handleInitializedNotification()
		result = struct{}{}
	default:
		err = protocol.NewFault(protocol.CodeMethodNotFound, "Method not found: %s", req.Method)
	}

	if err != nil {
		resp.Error = protocol.AsFault(err).RPCError()
		return resp
	}

	if err := resp.SetResult(result); err != nil {
		resp.Error = protocol.NewFault(protocol.CodeInternalError, "failed to marshal result: %v", err).RPCError()
	}
	return resp
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil || len(*req.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return protocol.NewFault(protocol.CodeInvalidParams, "failed to parse %s params: %v", req.Method, err)
	}
	return nil
}

func (h *Handler) handleInitialize(req *jsonrpc2.Request) (*protocol.InitializeResult, error) {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.clientInfo = params.ClientInfo
	h.mu.Unlock()

	log.Info("client initialized", "client", params.ClientInfo.Name, "requested_version", params.ProtocolVersion)

	return &protocol.InitializeResult{
		ProtocolVersion: negotiateProtocolVersion(params.ProtocolVersion),
		Capabilities: protocol.Capabilities{
			Tools: &protocol.ToolsCapability{},
		},
		ServerInfo: protocol.Implementation{
			Name:    h.name,
			Version: version.Version,
		},
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

func (h *Handler) handleListTools() *protocol.ListToolsResult {
	list := h.registry.List()
	result := &protocol.ListToolsResult{Tools: make([]protocol.Tool, len(list))}
	for i, t := range list {
		result.Tools[i] = tools.Describe(t)
	}
	return result
}

func (h *Handler) handleInitializedNotification() {
	h.mu.Lock()
	h.initialized = true
	h.mu.Unlock()
}

func (h *Handler) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Handler) handleCallTool(ctx context.Context, req *jsonrpc2.Request) (result *protocol.ToolResult, err error) {
	var params protocol.CallToolParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	if params.Name == "" {
		return nil, protocol.NewFault(protocol.CodeInvalidParams, "tool name is required")
	}

	defer func() {
		if r := recover(); r != nil {
			err = tools.NewToolExecutionError(params.Name, fmt.Errorf("tool execution panicked: %v", r))
			log.Error("tool panic recovered",
				"tool", params.Name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	if h.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.callTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err = h.registry.Execute(ctx, params.Name, params.Arguments)
	log.Info("tool call finished",
		"tool", params.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil)
	if err != nil {
		if _, ok := err.(*protocol.Fault); ok {
			return nil, err
		}
		return nil, tools.NewToolExecutionError(params.Name, err)
	}
	if result == nil {
		result = &protocol.ToolResult{Content: []protocol.Content{}}
	}
	return result, nil
}
