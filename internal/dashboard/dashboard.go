// Package dashboard holds the Host's single in-memory status record.
package dashboard

import (
	"sync"
	"time"
)

const (
	levelSafe = "SAFE"
	levelHigh = "HIGH"
)

// Snapshot is a copy of the status as served on GET /status.
type Snapshot struct {
	CurrentThreatLevel string     `json:"current_threat_level"`
	LastRecognizedText string     `json:"last_recognized_text"`
	ActiveAlertsToday  int        `json:"active_alerts_today"`
	LastStatusUpdate   *time.Time `json:"last_status_update"`
	LastRequestID      string     `json:"last_request_id,omitempty"`
}

// Status is safe for concurrent use. Every observation overwrites the last
// text and level; HIGH observations also bump the alert counter.
type Status struct {
	mu   sync.Mutex
	now  func() time.Time
	snap Snapshot
}

func New() *Status {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Status {
	return &Status{
		now:  now,
		snap: Snapshot{CurrentThreatLevel: levelSafe},
	}
}

// Observe records the outcome of one safety analysis.
func (s *Status) Observe(level, recognizedText, requestID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.CurrentThreatLevel = level
	s.snap.LastRecognizedText = recognizedText
	at := s.now().UTC()
	s.snap.LastStatusUpdate = &at
	s.snap.LastRequestID = requestID
	if level == levelHigh {
		s.snap.ActiveAlertsToday++
	}
	return s.snap
}

func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
