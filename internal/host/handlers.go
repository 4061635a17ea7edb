package host

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alucardeht/logia/internal/dashboard"
	"github.com/alucardeht/logia/internal/journal"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/router"
	"github.com/alucardeht/logia/pkg/protocol"
)

const levelHigh = "HIGH"

type rootResponse struct {
	Service         string            `json:"service"`
	Status          string            `json:"status"`
	Uptime          int64             `json:"uptime"`
	RegisteredTools []string          `json:"registered_tools"`
	Servers         map[string]string `json:"servers"`
	Classifier      string            `json:"classifier,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	resp := rootResponse{
		Service:         "LOGIA Host",
		Status:          "running",
		Uptime:          int64(time.Since(s.startTime).Seconds()),
		RegisteredTools: s.opts.Registry.Names(),
		Servers:         s.opts.Registry.Servers(),
	}
	if s.opts.Router != nil {
		resp.Classifier = s.opts.Router.Classifier()
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	HostDashboard   dashboard.Snapshot `json:"host_dashboard"`
	RegisteredTools []string           `json:"registered_tools"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		HostDashboard:   s.opts.Dashboard.Snapshot(),
		RegisteredTools: s.opts.Registry.Names(),
	})
}

// safetySummary holds the report fields the Host acts on. The full report
// is passed back to the caller unchanged.
type safetySummary struct {
	AlertLevel     string   `json:"alert_level"`
	RecognizedText string   `json:"recognized_text"`
	MatchedWords   []string `json:"matched_words"`
}

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	tool := router.ToolSafety
	caller, ok := s.opts.Registry.Lookup(tool)
	if !ok {
		writeError(w, http.StatusNotImplemented, fmt.Sprintf("No server found that provides the tool '%s'", tool))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxAudioBytes+1<<20)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("multipart field 'audio' is required: %v", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, s.opts.MaxAudioBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read audio: %v", err))
		return
	}
	if int64(len(audio)) > s.opts.MaxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("audio exceeds %d bytes", s.opts.MaxAudioBytes))
		return
	}

	args, err := json.Marshal(map[string]string{
		"audio_data":  base64.StdEncoding.EncodeToString(audio),
		"encoding":    "base64",
		"file_format": header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	result, err := caller.CallTool(ctx, tool, args)
	if err != nil {
		fault := protocol.AsFault(err)
		log.Warn("safety call failed", "specialist", caller.Name(), "kind", fault.Kind(), "error", fault.Message, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error from %s: %s", caller.Name(), fault.Message))
		return
	}
	if result.IsError {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error from %s: %s", caller.Name(), result.Text()))
		return
	}

	data := reportData(result)
	if len(data) == 0 {
		writeJSON(w, http.StatusOK, json.RawMessage(`{}`))
		return
	}

	var summary safetySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error from %s: unreadable report: %v", caller.Name(), err))
		return
	}
	s.observeSafety(ctx, r, summary)

	writeJSON(w, http.StatusOK, data)
}

func reportData(result *protocol.ToolResult) json.RawMessage {
	for _, c := range result.Content {
		if c.Type == protocol.ContentJSON && len(c.Data) > 0 {
			return c.Data
		}
	}
	return nil
}

func (s *Server) observeSafety(ctx context.Context, r *http.Request, summary safetySummary) {
	id := requestID(r)
	if summary.AlertLevel == "" {
		summary.AlertLevel = "UNKNOWN"
	}

	s.opts.Dashboard.Observe(summary.AlertLevel, summary.RecognizedText, id)
	s.opts.Metrics.ThreatAssessments.WithLabelValues(summary.AlertLevel).Inc()
	log.Info("audio analyzed", "level", summary.AlertLevel, "text", summary.RecognizedText, "request_id", id)

	if summary.AlertLevel == levelHigh {
		log.Warn("HIGH threat alert", "text", summary.RecognizedText, "matched_words", summary.MatchedWords, "request_id", id)
		if s.opts.AlertOnHigh && s.opts.Notifier != nil {
			body := fmt.Sprintf("CRITICAL SAFETY ALERT from LOGIA!\nThreat Level: HIGH\nDetected Phrase: '%s'\nLocation: [Prototype Location]", summary.RecognizedText)
			sid, err := s.opts.Notifier.Send(ctx, body)
			log.Info("host alert", "result", notify.Describe(err, "SMS alert sent."), "sid", sid, "request_id", id)
		}
	}

	s.record(ctx, journal.Incident{
		Kind:      journal.KindSafety,
		RequestID: id,
		Tool:      router.ToolSafety,
		Level:     summary.AlertLevel,
		Summary:   summary.RecognizedText,
	})
}

type resolveRequest struct {
	Scenario string `json:"scenario"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.opts.Router == nil {
		writeError(w, http.StatusServiceUnavailable, "Router is not available. Configure an LLM API key or enable the keyword classifier.")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		writeError(w, http.StatusBadRequest, "scenario is required")
		return
	}

	res, err := s.opts.Router.Resolve(r.Context(), req.Scenario)
	if err != nil {
		log.Error("routing failed", "error", err, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM Routing Error: %v", err))
		return
	}

	s.opts.Metrics.DispatchTotal.WithLabelValues(string(res.Department), string(res.Outcome)).Inc()
	s.record(r.Context(), journal.Incident{
		Kind:       journal.KindDispatch,
		RequestID:  requestID(r),
		Department: string(res.Department),
		Tool:       res.Tool,
		Outcome:    string(res.Outcome),
		Summary:    resolutionSummary(res),
	})

	writeJSON(w, http.StatusOK, res)
}

func resolutionSummary(res *router.Resolution) string {
	sr := res.SpecialistResult
	switch {
	case sr.Error != "":
		return sr.Error
	case sr.Text != "":
		return sr.Text
	default:
		return sr.Action
	}
}

func (s *Server) record(ctx context.Context, inc journal.Incident) {
	if s.opts.Journal == nil {
		return
	}
	if _, err := s.opts.Journal.Record(context.WithoutCancel(ctx), inc); err != nil {
		log.Warn("failed to journal incident", "kind", inc.Kind, "error", err)
	}
}

type incidentsResponse struct {
	Incidents []journal.Incident `json:"incidents"`
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "incident journal is disabled")
		return
	}

	limit := journal.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	incidents, err := s.opts.Journal.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, incidentsResponse{Incidents: incidents})
}
