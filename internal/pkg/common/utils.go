package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RespondError 將錯誤轉為統一的 JSON 響應
func RespondError(c *gin.Context, err error) {
	status := StatusOf(err)
	resp := ErrorResponse{
		Code:    CodeOf(err),
		Message: err.Error(),
	}
	if status >= 500 {
		LogError("Request failed",
			zap.Error(err),
			zap.String("code", resp.Code),
			zap.String("path", c.Request.URL.Path),
		)
	}
	c.AbortWithStatusJSON(status, resp)
}
