package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"query-gateway/pkg/response"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

// Root godoc
// @Summary Root
// @Description Liveness greeting.
// @Tags health
// @Produce json
// @Success 200 {object} response.MessageResponse
// @Router / [get]
func (hc *HealthController) Root(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessMessageResponse("Hello World!"))
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports that the API process is up. The warehouse is not contacted.
// @Tags health
// @Produce json
// @Success 200 {object} response.MessageResponse
// @Router /health [get]
func (hc *HealthController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessMessageResponse("The API is healthy!"))
}
