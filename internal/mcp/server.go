package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
)

// MaxRequestBytes bounds a single JSON-RPC request body. Audio uploads travel
// base64-encoded inside tools/call arguments.
const MaxRequestBytes = 64 << 20

// Server exposes a Handler as JSON-RPC over HTTP POST /.
type Server struct {
	registry  *tools.Registry
	handler   *Handler
	startTime time.Time
	mux       *http.ServeMux
}

func NewServer(name string, registry *tools.Registry) *Server {
	s := &Server{
		registry:  registry,
		handler:   NewHandler(name, registry),
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /{$}", s.handleRPC)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() *Handler {
	return s.handler
}

func (s *Server) Registry() *tools.Registry {
	return s.registry
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		writeResponse(w, &jsonrpc2.Response{
			Error: protocol.NewFault(protocol.CodeInvalidRequest, "failed to read request: %v", err).RPCError(),
		})
		return
	}

	var req jsonrpc2.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, &jsonrpc2.Response{
			Error: protocol.NewFault(protocol.CodeParseError, "Parse error").RPCError(),
		})
		return
	}

	resp := s.handler.Handle(r.Context(), &req)
	if req.Notif {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp *jsonrpc2.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.HealthResponse{
		Status: "healthy",
		Uptime: int64(time.Since(s.startTime).Seconds()),
		Tools:  s.registry.Names(),
	})
}
