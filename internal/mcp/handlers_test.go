package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
	"github.com/alucardeht/logia/pkg/version"
)

type stubTool struct {
	name string
	fn   func(ctx context.Context, input json.RawMessage) (*protocol.ToolResult, error)
}

func (t *stubTool) Name() string            { return t.name }
func (t *stubTool) Description() string     { return "stub" }
func (t *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *stubTool) Execute(ctx context.Context, input json.RawMessage) (*protocol.ToolResult, error) {
	return t.fn(ctx, input)
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	mustRegister := func(tool tools.Tool) {
		if err := r.Register(tool); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	mustRegister(&stubTool{name: "food/echo", fn: func(ctx context.Context, in json.RawMessage) (*protocol.ToolResult, error) {
		return protocol.TextResult(string(in)), nil
	}})
	mustRegister(&stubTool{name: "food/fail", fn: func(ctx context.Context, in json.RawMessage) (*protocol.ToolResult, error) {
		return nil, errors.New("boom")
	}})
	mustRegister(&stubTool{name: "food/invalid", fn: func(ctx context.Context, in json.RawMessage) (*protocol.ToolResult, error) {
		return nil, tools.NewInvalidArgumentsError("food/invalid", errors.New("scenario is required"))
	}})
	mustRegister(&stubTool{name: "food/panic", fn: func(ctx context.Context, in json.RawMessage) (*protocol.ToolResult, error) {
		panic("kaboom")
	}})
	mustRegister(&stubTool{name: "food/slow", fn: func(ctx context.Context, in json.RawMessage) (*protocol.ToolResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	return r
}

func call(t *testing.T, h *Handler, method string, params any) *jsonrpc2.Response {
	t.Helper()
	req := &jsonrpc2.Request{Method: method, ID: jsonrpc2.ID{Num: 1}}
	if params != nil {
		if err := req.SetParams(params); err != nil {
			t.Fatalf("set params: %v", err)
		}
	}
	return h.Handle(context.Background(), req)
}

func TestHandleInitializeNegotiatesVersion(t *testing.T) {
	h := NewHandler("FoodDelayServer", newTestRegistry(t))

	resp := call(t, h, protocol.MethodInitialize, protocol.InitializeParams{ProtocolVersion: "2024-11-05"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	var result protocol.InitializeResult
	if err := json.Unmarshal(*resp.Result, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("expected requested version, got %s", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "FoodDelayServer" {
		t.Errorf("unexpected server name %s", result.ServerInfo.Name)
	}

	resp = call(t, h, protocol.MethodInitialize, protocol.InitializeParams{ProtocolVersion: "1999-01-01"})
	if err := json.Unmarshal(*resp.Result, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ProtocolVersion != version.ProtocolVersion {
		t.Errorf("expected fallback version, got %s", result.ProtocolVersion)
	}
}

func TestHandleListTools(t *testing.T) {
	h := NewHandler("x", newTestRegistry(t))

	resp := call(t, h, protocol.MethodToolsList, nil)
	var result protocol.ListToolsResult
	if err := json.Unmarshal(*resp.Result, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Tools) != 5 || result.Tools[0].Name != "food/echo" {
		t.Errorf("unexpected tools: %+v", result.Tools)
	}
}

func TestHandleCallTool(t *testing.T) {
	h := NewHandler("x", newTestRegistry(t)).WithCallTimeout(50 * time.Millisecond)

	tests := []struct {
		name     string
		tool     string
		wantCode int64
		wantText string
	}{
		{name: "success", tool: "food/echo", wantText: `{"scenario":"late"}`},
		{name: "unknown tool", tool: "food/missing", wantCode: protocol.CodeMethodNotFound},
		{name: "plain error", tool: "food/fail", wantCode: protocol.CodeInternalError},
		{name: "typed fault", tool: "food/invalid", wantCode: protocol.CodeInvalidParams},
		{name: "panic", tool: "food/panic", wantCode: protocol.CodeInternalError},
		{name: "timeout", tool: "food/slow", wantCode: protocol.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, h, protocol.MethodToolsCall, protocol.CallToolParams{
				Name:      tt.tool,
				Arguments: json.RawMessage(`{"scenario":"late"}`),
			})
			if tt.wantCode != 0 {
				if resp.Error == nil || resp.Error.Code != tt.wantCode {
					t.Fatalf("expected code %d, got %+v", tt.wantCode, resp.Error)
				}
				return
			}
			if resp.Error != nil {
				t.Fatalf("unexpected error: %v", resp.Error)
			}
			var result protocol.ToolResult
			if err := json.Unmarshal(*resp.Result, &result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if result.Text() != tt.wantText {
				t.Errorf("got %q, want %q", result.Text(), tt.wantText)
			}
		})
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	h := NewHandler("x", newTestRegistry(t))
	resp := call(t, h, "resources/list", nil)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestServerHTTP(t *testing.T) {
	srv := NewServer("FoodDelayServer", newTestRegistry(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	post := func(body string) *http.Response {
		t.Helper()
		resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return resp
	}

	resp := post(`{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	var ok jsonrpc2.Response
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if ok.Error != nil || ok.ID.Num != 7 {
		t.Errorf("unexpected ping response: %+v", ok)
	}

	resp = post(`{not json`)
	var bad jsonrpc2.Response
	if err := json.NewDecoder(resp.Body).Decode(&bad); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if bad.Error == nil || bad.Error.Code != protocol.CodeParseError {
		t.Errorf("expected parse error, got %+v", bad.Error)
	}

	resp = post(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("expected 202 for notification, got %d", resp.StatusCode)
	}
	if !srv.Handler().Initialized() {
		t.Error("expected handler to record initialized notification")
	}

	health, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer health.Body.Close()
	var hr protocol.HealthResponse
	if err := json.NewDecoder(health.Body).Decode(&hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if hr.Status != "healthy" || len(hr.Tools) != 5 {
		t.Errorf("unexpected health: %+v", hr)
	}
}
