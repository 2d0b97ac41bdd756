package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCustomErrorIs(t *testing.T) {
	cause := errors.New("bucket missing")
	err := fmt.Errorf("detect: %w", WrapError(ErrStorageUnavailable, cause))

	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.False(t, errors.Is(err, ErrInferenceFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "bucket missing")
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest, ErrCodeInvalidRequest},
		{"storage", WrapError(ErrStorageUnavailable, errors.New("x")), http.StatusServiceUnavailable, ErrCodeStorageUnavailable},
		{"inference", WrapError(ErrInferenceFailure, errors.New("x")), http.StatusBadGateway, ErrCodeInferenceFailure},
		{"generation", WrapError(ErrGenerationFailure, errors.New("x")), http.StatusBadGateway, ErrCodeGenerationFailure},
		{"plain", errors.New("x"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusOf(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

	WriteError(c, WrapError(ErrGenerationFailure, errors.New("model overloaded")))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeGenerationFailure, resp.Code)
	assert.Equal(t, ErrGenerationFailure.Message, resp.Message)
	assert.Empty(t, resp.Details)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSONObject(`Sure! {"a":{"b":2}} enjoy`))
	assert.Equal(t, "plain", ExtractJSONObject("  plain "))
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	assert.NoError(t, ParseJSON(`{"a":1}`, &v))
	assert.Error(t, ParseJSON(`{"a":1} {"b":2}`, &v))
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, 0.75, AsFloat(json.Number("0.75"), 0))
	assert.Equal(t, 0.5, AsFloat(0.5, 0))
	assert.Equal(t, 3.0, AsFloat(3, 0))
	assert.Equal(t, 0.0, AsFloat("0.9", 0))
	assert.Equal(t, 0.0, AsFloat(nil, 0))
	assert.Equal(t, 0.0, AsFloat(json.Number("abc"), 0))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLogFiltersImageFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core)
	defer func() { Logger = prev }()

	LogWarn("upload", zap.String("image_data", "data:image/png;base64,AAAA"), zap.String("raw_base64", "AAAA"), zap.String("key", "a.png"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "image_data")
	assert.NotContains(t, fields, "raw_base64")
	assert.Equal(t, "a.png", fields["key"])
}
