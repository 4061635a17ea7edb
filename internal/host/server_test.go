package host

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/logia/internal/agents/safety"
	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/journal"
	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/mcp"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/registry"
	"github.com/alucardeht/logia/internal/router"
	"github.com/alucardeht/logia/internal/sentiment"
	"github.com/alucardeht/logia/internal/specialist"
	"github.com/alucardeht/logia/internal/tools"
	"github.com/alucardeht/logia/pkg/protocol"
)

type fakeCaller struct {
	name   string
	result *protocol.ToolResult
	err    error
}

func (f *fakeCaller) Name() string { return f.name }

func (f *fakeCaller) CallTool(ctx context.Context, tool string, args json.RawMessage) (*protocol.ToolResult, error) {
	return f.result, f.err
}

// startSafetySpecialist serves a real safety agent over JSON-RPC and
// discovers it the way the Host does at startup.
func startSafetySpecialist(t *testing.T, transcript string, compound float64, m *Metrics) *registry.Registry {
	t.Helper()

	model := &llm.Dummy{
		Transcript: transcript,
		Fallback:   `{"threat_level":"MEDIUM","threat_score":5,"justification":"Model opinion."}`,
	}
	agent := safety.New(model, sentiment.Fixed(compound), &notify.Recorder{}, config.DefaultRiskWords())

	toolReg := tools.NewRegistry()
	require.NoError(t, toolReg.Register(safety.NewTool(agent)))
	srv := httptest.NewServer(mcp.NewServer("SafetyServer", toolReg))
	t.Cleanup(srv.Close)

	dial := func(cfg config.Specialist) registry.Specialist {
		return specialist.New(cfg.Name, cfg.Address, 5*time.Second)
	}
	reg := registry.New()
	registry.Discover(context.Background(), reg, []config.Specialist{
		{Name: "SafetyServer", Address: srv.URL, Enabled: true},
	}, m.InstrumentDial(dial))
	require.Equal(t, 1, reg.Len())
	return reg
}

func audioRequest(t *testing.T, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="clip.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(audio)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/process-audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "logia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestProcessAudioHighThreat(t *testing.T) {
	m := NewMetrics()
	reg := startSafetySpecialist(t, "help me please", -0.9, m)
	sms := &notify.Recorder{}
	j := openJournal(t)
	s := NewServer(Options{Registry: reg, Metrics: m, Notifier: sms, Journal: j, AlertOnHigh: true})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, audioRequest(t, []byte("RIFF....WAVE")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report safety.Report
	decode(t, rec, &report)
	assert.Equal(t, safety.LevelHigh, report.AlertLevel)
	assert.Equal(t, "help me please", report.RecognizedText)
	assert.Equal(t, safety.SourceRules, report.ThreatAnalysis.Source)

	snap := s.opts.Dashboard.Snapshot()
	assert.Equal(t, "HIGH", snap.CurrentThreatLevel)
	assert.Equal(t, 1, snap.ActiveAlertsToday)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), snap.LastRequestID)

	msgs := sms.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "CRITICAL SAFETY ALERT from LOGIA!")
	assert.Contains(t, msgs[0], "Detected Phrase: 'help me please'")

	incidents, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, journal.KindSafety, incidents[0].Kind)
	assert.Equal(t, "HIGH", incidents[0].Level)

	metrics := httptest.NewRecorder()
	s.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `logia_host_threat_assessments_total{level="HIGH"} 1`)
	assert.Contains(t, metrics.Body.String(), `logia_host_specialist_call_seconds_count{tool="safety/analyzeAudio"} 1`)
}

func TestProcessAudioMediumDoesNotAlert(t *testing.T) {
	m := NewMetrics()
	reg := startSafetySpecialist(t, "please stop", 0.3, m)
	sms := &notify.Recorder{}
	s := NewServer(Options{Registry: reg, Metrics: m, Notifier: sms, AlertOnHigh: true})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, audioRequest(t, []byte("RIFF")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary safetySummary
	decode(t, rec, &summary)
	assert.Equal(t, "MEDIUM", summary.AlertLevel)
	assert.Empty(t, sms.Messages())
	assert.Zero(t, s.opts.Dashboard.Snapshot().ActiveAlertsToday)
}

func TestProcessAudioErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		s := NewServer(Options{})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, audioRequest(t, []byte("x")))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
		assert.Contains(t, rec.Body.String(), "safety/analyzeAudio")
	})

	t.Run("specialist fault", func(t *testing.T) {
		reg := registry.New()
		reg.Register(router.ToolSafety, &fakeCaller{name: "SafetyServer", err: protocol.NewFault(protocol.CodeUnavailable, "connection refused")})
		s := NewServer(Options{Registry: reg})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, audioRequest(t, []byte("x")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body errorBody
		decode(t, rec, &body)
		assert.Equal(t, "Error from SafetyServer: connection refused", body.Detail)
	})

	t.Run("missing file", func(t *testing.T) {
		reg := registry.New()
		reg.Register(router.ToolSafety, &fakeCaller{name: "SafetyServer"})
		s := NewServer(Options{Registry: reg})

		req := httptest.NewRequest(http.MethodPost, "/process-audio", strings.NewReader("nope"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		reg := registry.New()
		reg.Register(router.ToolSafety, &fakeCaller{name: "SafetyServer"})
		s := NewServer(Options{Registry: reg, MaxAudioBytes: 4})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, audioRequest(t, []byte("0123456789")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func resolveRequestBody(scenario string) io.Reader {
	b, _ := json.Marshal(map[string]string{"scenario": scenario})
	return bytes.NewReader(b)
}

func TestResolveDisruption(t *testing.T) {
	reg := registry.New()
	food, err := protocol.JSONResult("Order ORD123: critical delay.", map[string]string{"order_id": "ORD123"})
	require.NoError(t, err)
	reg.Register(router.ToolFood, &fakeCaller{name: "FoodDelayServer", result: food})

	j := openJournal(t)
	s := NewServer(Options{Registry: reg, Router: router.NewRouter(router.NewKeywordClassifier(), reg), Journal: j})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve-disruption", resolveRequestBody("My food delivery for ORD123 is late")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res router.Resolution
	decode(t, rec, &res)
	assert.Equal(t, router.DepartmentFood, res.Department)
	assert.Equal(t, router.ToolFood, res.Tool)
	assert.Equal(t, "Order ORD123: critical delay.", res.SpecialistResult.Text)
	assert.Contains(t, res.RouterReasoning, "Routing to the food_delay_agent")

	incidents, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "forwarded", incidents[0].Outcome)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve-disruption", resolveRequestBody("my cab ride needs a new destination")))
	require.Equal(t, http.StatusOK, rec.Code)
	var cab router.Resolution
	decode(t, rec, &cab)
	assert.Equal(t, router.OutcomeNotConnected, cab.Outcome)
	assert.Equal(t, "Cab Rerouting Agent is not connected.", cab.SpecialistResult.Error)

	metrics := httptest.NewRecorder()
	s.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `logia_host_dispatch_total{department="cab_rerouting_agent",outcome="not_connected"} 1`)
}

func TestResolveDisruptionErrors(t *testing.T) {
	t.Run("no router", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewServer(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve-disruption", resolveRequestBody("x")))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("classification failure", func(t *testing.T) {
		model := &llm.Dummy{Fallback: `{"agent_name":"billing_agent"}`}
		s := NewServer(Options{Router: router.NewRouter(router.NewLLMClassifier(model), registry.New())})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve-disruption", resolveRequestBody("x")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body errorBody
		decode(t, rec, &body)
		assert.True(t, strings.HasPrefix(body.Detail, "LLM Routing Error: "), body.Detail)
	})

	t.Run("empty scenario", func(t *testing.T) {
		s := NewServer(Options{Router: router.NewRouter(router.NewKeywordClassifier(), registry.New())})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve-disruption", resolveRequestBody("  ")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRootAndStatus(t *testing.T) {
	reg := registry.New()
	reg.Register(router.ToolFood, &fakeCaller{name: "FoodDelayServer"})
	s := NewServer(Options{Registry: reg})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var root rootResponse
	decode(t, rec, &root)
	assert.Equal(t, "running", root.Status)
	assert.Equal(t, []string{router.ToolFood}, root.RegisteredTools)
	assert.Equal(t, "FoodDelayServer", root.Servers[router.ToolFood])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status statusResponse
	decode(t, rec, &status)
	assert.Equal(t, "SAFE", status.HostDashboard.CurrentThreatLevel)
	assert.Nil(t, status.HostDashboard.LastStatusUpdate)
}

func TestIncidents(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	j := openJournal(t)
	for _, summary := range []string{"a", "b", "c"} {
		_, err := j.Record(context.Background(), journal.Incident{Kind: journal.KindDispatch, Summary: summary})
		require.NoError(t, err)
	}
	s := NewServer(Options{Journal: j})

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body incidentsResponse
	decode(t, rec, &body)
	assert.Len(t, body.Incidents, 2)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
