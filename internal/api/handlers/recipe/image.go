package recipe

import (
	"errors"
	"net/http"

	"recipe-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// UploadResponse 圖片上傳結果
type UploadResponse struct {
	Image string `json:"image"`
}

// uploadJSONRequest 以 data URL 上傳圖片
type uploadJSONRequest struct {
	ImageData string `json:"image_data" binding:"required"`
}

// HandleUploadImage 接收 multipart 欄位 file 或 JSON image_data 並上傳
func (h *Handler) HandleUploadImage(c *gin.Context) {
	var (
		key string
		err error
	)

	if c.ContentType() == gin.MIMEJSON {
		var req uploadJSONRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			common.WriteError(c, common.NewValidationError("image_data is required"))
			return
		}
		key, err = h.uploader.UploadDataURL(c.Request.Context(), req.ImageData)
	} else {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(ferr, &tooLarge) {
				common.WriteError(c, common.ErrInvalidImageSize)
				return
			}
			common.WriteError(c, common.NewValidationError("file is required"))
			return
		}
		f, oerr := fh.Open()
		if oerr != nil {
			common.WriteError(c, common.NewValidationError("file cannot be read"))
			return
		}
		defer f.Close()
		key, err = h.uploader.Upload(c.Request.Context(), f)
	}

	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, UploadResponse{Image: key})
}
