package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "logia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	j := openTemp(t)

	inc, err := j.Record(context.Background(), Incident{Kind: KindSafety, Level: "HIGH", Summary: "help me"})
	require.NoError(t, err)
	assert.NotEmpty(t, inc.ID)
	assert.False(t, inc.CreatedAt.IsZero())
}

func TestRecentNewestFirst(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, summary := range []string{"first", "second", "third"} {
		_, err := j.Record(ctx, Incident{
			Kind:       KindDispatch,
			Department: "food_delay_agent",
			Tool:       "food/resolveDelay",
			Outcome:    "forwarded",
			Summary:    summary,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Summary)
	assert.Equal(t, "second", got[1].Summary)
	assert.Equal(t, KindDispatch, got[0].Kind)
	assert.Equal(t, "food/resolveDelay", got[0].Tool)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestRecentEmpty(t *testing.T) {
	got, err := openTemp(t).Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestReopenKeepsIncidents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logia.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(context.Background(), Incident{Kind: KindSafety, Summary: "persisted"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Summary)
}
