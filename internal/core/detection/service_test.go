package detection

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"recipe-ai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	err       error
	localPath string
}

func (f *fakeStore) Get(_ context.Context, _, localPath string) error {
	f.localPath = localPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(localPath, []byte("image"), 0o600)
}

type fakeEngine struct {
	calls      int
	workflowID string
	imagePath  string
	output     string
	err        error
}

func (f *fakeEngine) Run(_ context.Context, workflowID, imagePath string) (json.RawMessage, error) {
	f.calls++
	f.workflowID = workflowID
	f.imagePath = imagePath
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.output), nil
}

func TestDetect(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngine{output: `{"predictions":{"predictions":[
		{"class":"chicken","confidence":0.91},
		{"class":"chicken","confidence":0.88},
		{"class":"broccoli","confidence":0.75},
		{"class":"carrot","confidence":0.42}
	]}}`}
	svc := NewService(store, engine, "detect-count-and-visualize", WithTempDir(t.TempDir()))

	got, err := svc.Detect(context.Background(), "uploads/fridge.jpg")
	require.NoError(t, err)
	assert.Equal(t, common.IngredientSet{"chicken", "broccoli"}, got)

	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, "detect-count-and-visualize", engine.workflowID)
	assert.Equal(t, store.localPath, engine.imagePath)
	assert.Equal(t, ".jpg", store.localPath[len(store.localPath)-4:])

	_, statErr := os.Stat(store.localPath)
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed")
}

func TestDetectStorageUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("bucket not found")}
	engine := &fakeEngine{}
	svc := NewService(store, engine, "wf", WithTempDir(t.TempDir()))

	_, err := svc.Detect(context.Background(), "missing.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageUnavailable))
	assert.Equal(t, 0, engine.calls)

	_, statErr := os.Stat(store.localPath)
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed")
}

func TestDetectInferenceFailure(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngine{err: errors.New("workflow timed out")}
	svc := NewService(store, engine, "wf", WithTempDir(t.TempDir()))

	_, err := svc.Detect(context.Background(), "fridge.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInferenceFailure))
	assert.False(t, errors.Is(err, common.ErrStorageUnavailable))

	_, statErr := os.Stat(store.localPath)
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed")
}

func TestDetectCustomThreshold(t *testing.T) {
	engine := &fakeEngine{output: `{"predictions":{"predictions":[{"class":"carrot","confidence":0.42}]}}`}
	svc := NewService(&fakeStore{}, engine, "wf", WithThreshold(0.4), WithTempDir(t.TempDir()))

	got, err := svc.Detect(context.Background(), "fridge.jpg")
	require.NoError(t, err)
	assert.Equal(t, common.IngredientSet{"carrot"}, got)
}

func TestExtractPredictions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []common.IngredientPrediction
	}{
		{"missing outer", `{}`, nil},
		{"outer not object", `{"predictions":[1,2]}`, nil},
		{"inner missing", `{"predictions":{}}`, nil},
		{"inner not list", `{"predictions":{"predictions":"x"}}`, nil},
		{"not json", `garbage`, nil},
		{
			"skips malformed records",
			`{"predictions":{"predictions":[{"confidence":0.9},"oops",{"class":"egg"},{"class":"milk","confidence":0.8}]}}`,
			[]common.IngredientPrediction{
				{ClassName: "egg", Confidence: 0},
				{ClassName: "milk", Confidence: 0.8},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPredictions(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectEmptyPredictions(t *testing.T) {
	engine := &fakeEngine{output: `{"predictions":{}}`}
	svc := NewService(&fakeStore{}, engine, "wf", WithTempDir(t.TempDir()))

	got, err := svc.Detect(context.Background(), "fridge.jpg")
	require.NoError(t, err)
	assert.Empty(t, got)
}
