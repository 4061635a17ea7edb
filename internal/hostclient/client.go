// Package hostclient is a small HTTP client for the Host, used by the CLI.
package hostclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultTimeout = 3 * time.Minute

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for non-2xx answers. Detail is the Host's
// {"detail": ...} message when it sent one.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("host returned %d: %s", e.Code, e.Detail)
}

// Resolve posts a scenario to /resolve-disruption.
func (c *Client) Resolve(ctx context.Context, scenario string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"scenario": scenario})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/resolve-disruption", "application/json", bytes.NewReader(body))
}

// ProcessAudio uploads audio as the multipart field "audio".
func (c *Client) ProcessAudio(ctx context.Context, filename, contentType string, audio io.Reader) (json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/process-audio", mw.FormDataContentType(), &body)
}

func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/status", "", nil)
}

func (c *Client) Info(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/", "", nil)
}

func (c *Client) Incidents(ctx context.Context, limit int) (json.RawMessage, error) {
	path := "/incidents"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach host at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read host response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &e) != nil || e.Detail == "" {
			e.Detail = strings.TrimSpace(string(data))
		}
		return nil, &StatusError{Code: resp.StatusCode, Detail: e.Detail}
	}
	return json.RawMessage(data), nil
}

// Indent pretty-prints a JSON payload for terminal output.
func Indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
