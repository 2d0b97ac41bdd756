package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-ai/internal/api/handlers/health"
	"recipe-ai/internal/infrastructure/config"
	"recipe-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct{}

func (fakeDetector) Detect(context.Context, string) (common.IngredientSet, error) {
	return common.IngredientSet{"egg"}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, req common.RecipeRequest) (*common.RecipeOutput, error) {
	return &common.RecipeOutput{Title: "Omelette", IngredientParts: req.Ingredients}, nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(context.Context, io.Reader) (string, error) { return "k.png", nil }
func (fakeUploader) UploadDataURL(context.Context, string) (string, error) {
	return "k.png", nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Version: "test"},
		Server:      config.ServerConfig{RequestTimeout: time.Second},
		RateLimit:   config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		Image:       config.ImageConfig{MaxSizeBytes: 1024},
		DedupWindow: time.Second,
	}
}

func setup(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router, cleanup := SetupRouter(testConfig(), Dependencies{
		Detector:  fakeDetector{},
		Generator: fakeGenerator{},
		Uploader:  fakeUploader{},
		Readiness: map[string]health.Pinger{"storage": okPinger{}},
	})
	t.Cleanup(cleanup)
	return router
}

func TestRoutes(t *testing.T) {
	router := setup(t)

	tests := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/ready", "", http.StatusOK, `"ready"`},
		{http.MethodGet, "/live", "", http.StatusOK, `"alive"`},
		{http.MethodPost, "/api/v1/ingredients/detect", `{"image":"k.png"}`, http.StatusOK, `"egg"`},
		{http.MethodPost, "/api/v1/recipes/generate", `{"ingredients":["egg"]}`, http.StatusOK, `"Omelette"`},
		{http.MethodPost, "/api/v1/images", `{"image_data":"data:image/png;base64,AA=="}`, http.StatusCreated, `"k.png"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "http_requests_total"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			router.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.contains)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestBodyLimit(t *testing.T) {
	router := setup(t)

	body := `{"image":"` + strings.Repeat("x", 2<<20) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingredients/detect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
