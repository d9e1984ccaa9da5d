package controller

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"query-gateway/internal/apidocs"
)

// DocsPath is where the OpenAPI document is served
const DocsPath = "/api-docs.json"

type DocsController struct {
	document []byte
	ui       http.Handler
}

// NewDocsController renders the OpenAPI document once. The advertised host
// is the production URL when configured, otherwise localhost on port.
func NewDocsController(productionURL, port string, logger *zap.Logger) *DocsController {
	spec := *apidocs.SwaggerInfo
	spec.Host = "localhost:" + port
	spec.Schemes = []string{"http"}

	if productionURL != "" {
		u, err := url.Parse(productionURL)
		if err != nil || u.Host == "" {
			logger.Warn("ignoring invalid production URL for API docs", zap.String("url", productionURL))
		} else {
			spec.Host = u.Host
			spec.Schemes = []string{u.Scheme}
			if u.Path != "" && u.Path != "/" {
				spec.BasePath = strings.TrimSuffix(u.Path, "/")
			}
		}
	}

	return &DocsController{
		document: []byte(spec.ReadDoc()),
		ui:       httpSwagger.Handler(httpSwagger.URL(DocsPath)),
	}
}

// Document serves the OpenAPI document
func (dc *DocsController) Document(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", dc.document)
}

// UI serves the swagger UI. Its built-in document route is redirected to
// DocsPath so the docs token still applies.
func (dc *DocsController) UI(c *gin.Context) {
	if strings.HasSuffix(c.Param("any"), "doc.json") {
		target := DocsPath
		if c.Request.URL.RawQuery != "" {
			target += "?" + c.Request.URL.RawQuery
		}
		c.Redirect(http.StatusFound, target)
		return
	}

	dc.ui.ServeHTTP(c.Writer, c.Request)
}
