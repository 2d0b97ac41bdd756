package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 依錯誤種類寫入 JSON 錯誤響應
func WriteError(c *gin.Context, err error) {
	status, code := StatusOf(err)

	message := err.Error()
	var ce *CustomError
	if errors.As(err, &ce) {
		message = ce.Message
	}

	resp := ErrorResponse{Code: code, Message: message}
	if gin.Mode() == gin.DebugMode && status >= http.StatusInternalServerError {
		resp.Details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		LogError("請求處理失敗",
			zap.Error(err),
			zap.String("code", code),
			zap.String("path", c.Request.URL.Path),
		)
	}

	c.AbortWithStatusJSON(status, resp)
}
