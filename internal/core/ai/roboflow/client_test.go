package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recipe-ai/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "fridge.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o600))
	return path
}

func TestClientRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sdl-wastenot/workflows/detect-count-and-visualize", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req workflowRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "key", req.APIKey)
		assert.True(t, req.UseCache)
		assert.Equal(t, "base64", req.Inputs["image"].Type)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")), req.Inputs["image"].Value)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"outputs":[{"predictions":{"predictions":[{"class":"egg","confidence":0.9}]}},{"ignored":true}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.RoboflowConfig{
		APIURL:    srv.URL,
		APIKey:    "key",
		Workspace: "sdl-wastenot",
		UseCache:  true,
		Timeout:   time.Second,
	})

	out, err := c.Run(context.Background(), "detect-count-and-visualize", writeImage(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":{"predictions":[{"class":"egg","confidence":0.9}]}}`, string(out))
}

func TestClientRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`},
		{"no outputs", http.StatusOK, `{"outputs":[]}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			c := NewClient(config.RoboflowConfig{APIURL: srv.URL, Workspace: "w", Timeout: time.Second})
			_, err := c.Run(context.Background(), "wf", writeImage(t))
			assert.Error(t, err)
		})
	}
}

func TestClientRunMissingFile(t *testing.T) {
	c := NewClient(config.RoboflowConfig{APIURL: "http://127.0.0.1:1", Workspace: "w", Timeout: time.Second})
	_, err := c.Run(context.Background(), "wf", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
