package dashboard

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitialSnapshot(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { return start })

	snap := s.Snapshot()
	assert.Equal(t, "SAFE", snap.CurrentThreatLevel)
	assert.Empty(t, snap.LastRecognizedText)
	assert.Zero(t, snap.ActiveAlertsToday)
	assert.Nil(t, snap.LastStatusUpdate, "no update before the first observation")
}

func TestObserveOverwritesAndCounts(t *testing.T) {
	tick := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})

	s.Observe("HIGH", "help me", "req-1")
	s.Observe("MEDIUM", "stop that", "req-2")
	snap := s.Observe("HIGH", "danger", "req-3")

	assert.Equal(t, "HIGH", snap.CurrentThreatLevel)
	assert.Equal(t, "danger", snap.LastRecognizedText)
	assert.Equal(t, "req-3", snap.LastRequestID)
	assert.Equal(t, 2, snap.ActiveAlertsToday)
	assert.Equal(t, snap, s.Snapshot())
	if assert.NotNil(t, snap.LastStatusUpdate) {
		assert.Equal(t, tick, *snap.LastStatusUpdate)
	}
}

func TestConcurrentHighAlertsAreNotLost(t *testing.T) {
	s := New()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Observe("HIGH", "help", fmt.Sprintf("req-%d", i))
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Snapshot().ActiveAlertsToday)
}
