package hostclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/resolve-disruption":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "food is late", body["scenario"])
			io.WriteString(w, `{"department":"food_delay_agent"}`)
		case r.URL.Path == "/status":
			io.WriteString(w, `{"host_dashboard":{"current_threat_level":"SAFE"}}`)
		case r.URL.Path == "/incidents":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			io.WriteString(w, `{"incidents":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	ctx := context.Background()

	out, err := c.Resolve(ctx, "food is late")
	require.NoError(t, err)
	assert.JSONEq(t, `{"department":"food_delay_agent"}`, string(out))

	out, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Contains(t, Indent(out), "\n  \"host_dashboard\"")

	_, err = c.Incidents(ctx, 5)
	require.NoError(t, err)
}

func TestProcessAudioUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "RIFF", string(data))
		assert.Equal(t, "clip.wav", header.Filename)
		assert.Equal(t, "audio/wav", header.Header.Get("Content-Type"))
		io.WriteString(w, `{"alert_level":"SAFE"}`)
	}))
	defer srv.Close()

	out, err := New(srv.URL, time.Second).ProcessAudio(context.Background(), "/tmp/clip.wav", "audio/wav", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"alert_level":"SAFE"}`, string(out))
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"detail":"Router is not available."}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Resolve(context.Background(), "x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "Router is not available.", se.Detail)
}

func TestUnreachableHost(t *testing.T) {
	_, err := New("http://127.0.0.1:1", time.Second).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not reach host")
}
