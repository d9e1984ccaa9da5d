package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"query-gateway/internal/middleware"
	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

// respondError logs err and writes its envelope
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := utils.AsAppError(err)
	status := appErr.Status()

	fields := []zap.Field{
		zap.String("kind", appErr.Kind),
		zap.Int("status", status),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("correlation_id", middleware.GetCorrelationID(c)),
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	} else {
		fields = append(fields, zap.String("message", appErr.Message))
	}

	if status >= 500 {
		logger.Error("request failed", fields...)
	} else {
		logger.Info("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, response.ErrorResponseFromAppError(appErr))
}
