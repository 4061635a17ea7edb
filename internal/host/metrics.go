package host

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/registry"
	"github.com/alucardeht/logia/pkg/protocol"
)

// Metrics holds the Host's Prometheus collectors.
type Metrics struct {
	DispatchTotal     *prometheus.CounterVec
	ThreatAssessments *prometheus.CounterVec
	SpecialistCall    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with a private registry, so several
// Hosts (tests included) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logia_host_dispatch_total",
			Help: "Scenarios resolved, by department and outcome",
		}, []string{"department", "outcome"}),
		ThreatAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logia_host_threat_assessments_total",
			Help: "Safety analyses, by alert level",
		}, []string{"level"}),
		SpecialistCall: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logia_host_specialist_call_seconds",
			Help:    "Latency of tools/call requests to specialists",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}, []string{"tool"}),
		gatherer: reg,
	}

	reg.MustRegister(m.DispatchTotal, m.ThreatAssessments, m.SpecialistCall)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentDial wraps every dialled specialist so its tool calls are timed.
func (m *Metrics) InstrumentDial(dial registry.DialFunc) registry.DialFunc {
	return func(cfg config.Specialist) registry.Specialist {
		return &instrumented{Specialist: dial(cfg), hist: m.SpecialistCall}
	}
}

type instrumented struct {
	registry.Specialist
	hist *prometheus.HistogramVec
}

func (i *instrumented) CallTool(ctx context.Context, tool string, args json.RawMessage) (*protocol.ToolResult, error) {
	start := time.Now()
	res, err := i.Specialist.CallTool(ctx, tool, args)
	i.hist.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	return res, err
}
