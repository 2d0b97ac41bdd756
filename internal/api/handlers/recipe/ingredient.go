package recipe

import (
	"net/http"
	"strings"

	"recipe-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DetectRequest 食材辨識請求，image 為上傳後取得的物件 key
type DetectRequest struct {
	Image string `json:"image" binding:"required"`
}

// DetectResponse 食材辨識結果
type DetectResponse struct {
	Ingredients common.IngredientSet `json:"ingredients"`
}

// HandleDetectIngredients 辨識圖片中的食材
func (h *Handler) HandleDetectIngredients(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.NewValidationError("image is required"))
		return
	}
	req.Image = strings.TrimSpace(req.Image)
	if req.Image == "" {
		common.WriteError(c, common.NewValidationError("image is required"))
		return
	}

	set, err := h.detector.Detect(c.Request.Context(), req.Image)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	common.LogDebug("食材辨識回應", zap.String("image", req.Image), zap.Strings("ingredients", set))
	c.JSON(http.StatusOK, DetectResponse{Ingredients: set})
}
