package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recipe-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	ref string
	set common.IngredientSet
	err error
}

func (s *stubDetector) Detect(_ context.Context, ref string) (common.IngredientSet, error) {
	s.ref = ref
	return s.set, s.err
}

type stubGenerator struct {
	req common.RecipeRequest
	out *common.RecipeOutput
	err error
}

func (s *stubGenerator) Generate(_ context.Context, req common.RecipeRequest) (*common.RecipeOutput, error) {
	s.req = req
	return s.out, s.err
}

type stubUploader struct {
	data    []byte
	dataURL string
	key     string
	err     error
}

func (s *stubUploader) Upload(_ context.Context, r io.Reader) (string, error) {
	s.data, _ = io.ReadAll(r)
	return s.key, s.err
}

func (s *stubUploader) UploadDataURL(_ context.Context, imageData string) (string, error) {
	s.dataURL = imageData
	return s.key, s.err
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/images", h.HandleUploadImage)
	r.POST("/ingredients/detect", h.HandleDetectIngredients)
	r.POST("/recipes/generate", h.HandleGenerateRecipe)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestHandleDetectIngredients(t *testing.T) {
	det := &stubDetector{set: common.IngredientSet{"chicken", "broccoli"}}
	r := newRouter(NewHandler(det, nil, nil))

	w := postJSON(r, "/ingredients/detect", `{"image":"abc.jpg"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ingredients":["chicken","broccoli"]}`, w.Body.String())
	assert.Equal(t, "abc.jpg", det.ref)
}

func TestHandleDetectIngredientsErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"missing image", `{}`, nil, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"blank image", `{"image":"  "}`, nil, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"storage", `{"image":"a.jpg"}`, common.WrapError(common.ErrStorageUnavailable, errors.New("no bucket")), http.StatusServiceUnavailable, common.ErrCodeStorageUnavailable},
		{"inference", `{"image":"a.jpg"}`, common.WrapError(common.ErrInferenceFailure, errors.New("502")), http.StatusBadGateway, common.ErrCodeInferenceFailure},
		{"unknown", `{"image":"a.jpg"}`, errors.New("disk full"), http.StatusInternalServerError, common.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(NewHandler(&stubDetector{err: tt.err}, nil, nil))
			w := postJSON(r, "/ingredients/detect", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestHandleGenerateRecipe(t *testing.T) {
	url := "https://img/curry.jpg"
	gen := &stubGenerator{out: &common.RecipeOutput{
		Title:           "Chicken Curry",
		IngredientParts: []string{"chicken"},
		Ingredients:     []string{"1 chicken"},
		Instructions:    []string{"Cook"},
		ImageURL:        &url,
	}}
	r := newRouter(NewHandler(nil, gen, nil))

	w := postJSON(r, "/recipes/generate", `{
		"ingredients": ["chicken", " ", "rice "],
		"dietary_preferences": ["gluten-free"],
		"allergies": [],
		"meal_type": "dinner",
		"cooking_time": "30 minutes"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Chicken Curry", resp.Recipe.Title)
	require.NotNil(t, resp.Recipe.ImageURL)
	assert.Equal(t, url, *resp.Recipe.ImageURL)

	assert.Equal(t, []string{"chicken", "rice"}, gen.req.Ingredients)
	assert.Equal(t, []string{"gluten-free"}, gen.req.DietaryPreferences)
	assert.Empty(t, gen.req.Allergies)
	assert.Equal(t, "dinner", gen.req.MealType)
}

func TestHandleGenerateRecipeNullImage(t *testing.T) {
	gen := &stubGenerator{out: &common.RecipeOutput{Title: "Plain Rice"}}
	r := newRouter(NewHandler(nil, gen, nil))

	w := postJSON(r, "/recipes/generate", `{"ingredients":["rice"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"image_url":null`)
}

func TestHandleGenerateRecipeErrors(t *testing.T) {
	r := newRouter(NewHandler(nil, &stubGenerator{}, nil))
	w := postJSON(r, "/recipes/generate", `{"ingredients":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/recipes/generate", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	gen := &stubGenerator{err: common.WrapError(common.ErrGenerationFailure, errors.New("overloaded"))}
	r = newRouter(NewHandler(nil, gen, nil))
	w = postJSON(r, "/recipes/generate", `{"ingredients":["rice"]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, common.ErrCodeGenerationFailure, errorCode(t, w))
}

func TestHandleUploadImageMultipart(t *testing.T) {
	up := &stubUploader{key: "0f8c.png"}
	r := newRouter(NewHandler(nil, nil, up))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "fridge.png")
	require.NoError(t, err)
	fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"image":"0f8c.png"}`, w.Body.String())
	assert.Equal(t, []byte("png-bytes"), up.data)
}

func TestHandleUploadImageDataURL(t *testing.T) {
	up := &stubUploader{key: "k.jpg"}
	r := newRouter(NewHandler(nil, nil, up))

	w := postJSON(r, "/images", `{"image_data":"data:image/jpeg;base64,AAAA"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", up.dataURL)
}

func TestHandleUploadImageErrors(t *testing.T) {
	r := newRouter(NewHandler(nil, nil, &stubUploader{}))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/images", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newRouter(NewHandler(nil, nil, &stubUploader{err: common.ErrInvalidImageType}))
	w = postJSON(r, "/images", `{"image_data":"data:image/gif;base64,AAAA"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_IMAGE_TYPE", errorCode(t, w))
}
