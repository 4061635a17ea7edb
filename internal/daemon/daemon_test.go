package daemon

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServesUntilCancelled(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "host.pid")
	d := New(Options{
		Name:   "test",
		Listen: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "ok")
		}),
		PIDFile: pidPath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + d.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	data, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
	assert.Greater(t, d.Uptime(), time.Duration(0))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err), "pid file removed on exit")
}

func TestRunListenError(t *testing.T) {
	d := New(Options{Name: "bad", Listen: "256.0.0.1:1", Handler: http.NotFoundHandler()})
	err := d.Run(context.Background())
	require.Error(t, err)
}

func TestPIDFileStaleEntryIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0600))

	p := NewPIDFile(path)
	_, err := p.Read()
	require.Error(t, err, "zero is not a valid pid")

	require.NoError(t, p.Write())
	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	require.NoError(t, p.Remove())

	pid, err = p.Read()
	require.NoError(t, err)
	assert.Zero(t, pid)
}
