// Package specialist is the Host side of the JSON-RPC exchange with a
// specialist agent.
package specialist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/pkg/protocol"
	"github.com/alucardeht/logia/pkg/version"
)

var log = logger.ForComponent("specialist")

const DefaultTimeout = 90 * time.Second

// Client talks to one specialist over HTTP POST /. Every error returned by
// its methods is a *protocol.Fault.
type Client struct {
	name    string
	address string
	http    *http.Client
}

func New(name, address string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		name:    name,
		address: strings.TrimRight(address, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string    { return c.name }
func (c *Client) Address() string { return c.address }

// Initialize announces the Host and reports whether the specialist answered
// with a capabilities object.
func (c *Client) Initialize(ctx context.Context) bool {
	raw, err := c.call(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: version.ProtocolVersion,
		ClientInfo:      protocol.Implementation{Name: "logia-host", Version: version.Version},
	})
	if err != nil {
		log.Warn("initialize failed", "specialist", c.name, "address", c.address, "error", err)
		return false
	}

	var result struct {
		Capabilities json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Warn("initialize returned unreadable result", "specialist", c.name, "error", err)
		return false
	}
	caps := bytes.TrimSpace(result.Capabilities)
	if len(caps) == 0 || caps[0] != '{' {
		log.Warn("initialize result has no capabilities", "specialist", c.name)
		return false
	}

	if err := c.notify(ctx, protocol.MethodInitialized); err != nil {
		log.Debug("initialized notification failed", "specialist", c.name, "error", err)
	}
	return true
}

// ListTools returns the specialist's catalog in the order it was served.
// Failures yield an empty list.
func (c *Client) ListTools(ctx context.Context) []protocol.Tool {
	raw, err := c.call(ctx, protocol.MethodToolsList, struct{}{})
	if err != nil {
		log.Warn("tools/list failed", "specialist", c.name, "error", err)
		return nil
	}
	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Warn("tools/list returned unreadable result", "specialist", c.name, "error", err)
		return nil
	}
	return result.Tools
}

func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.ToolResult, error) {
	raw, err := c.call(ctx, protocol.MethodToolsCall, protocol.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var result protocol.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, protocol.NewFault(protocol.CodeParseError, "failed to decode %s result from %s: %v", name, c.name, err)
	}
	return &result, nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := &jsonrpc2.Request{
		Method: method,
		ID:     jsonrpc2.ID{Str: uuid.NewString(), IsString: true},
	}
	if err := req.SetParams(params); err != nil {
		return nil, protocol.NewFault(protocol.CodeInvalidParams, "failed to encode %s params: %v", method, err)
	}

	body, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp jsonrpc2.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, protocol.NewFault(protocol.CodeParseError, "invalid response from %s: %v", c.name, err)
	}
	if resp.Error != nil {
		return nil, protocol.FaultFromRPC(resp.Error)
	}
	if resp.Result == nil {
		return nil, protocol.NewFault(protocol.CodeInvalidRequest, "response from %s has neither result nor error", c.name)
	}
	return *resp.Result, nil
}

func (c *Client) notify(ctx context.Context, method string) error {
	_, err := c.post(ctx, &jsonrpc2.Request{Method: method, Notif: true})
	return err
}

func (c *Client) post(ctx context.Context, req *jsonrpc2.Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, protocol.NewFault(protocol.CodeInternalError, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, protocol.NewFault(protocol.CodeUnavailable, "invalid address %q: %v", c.address, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, protocol.NewFault(protocol.CodeUnavailable, "%s unreachable at %s: %v", c.name, c.address, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, protocol.NewFault(protocol.CodeUnavailable, "failed to read response from %s: %v", c.name, err)
	}
	if resp.StatusCode >= 300 {
		return nil, protocol.NewFault(protocol.CodeUnavailable, "%s answered HTTP %d: %s", c.name, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
