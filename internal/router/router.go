package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"query-gateway/internal/config"
	"query-gateway/internal/controller"
	"query-gateway/internal/middleware"
	"query-gateway/internal/security"
	"query-gateway/internal/service"
	"query-gateway/pkg/response"
)

// Deps are the collaborators the HTTP surface is built from. Metrics and
// RateLimiter are optional.
type Deps struct {
	Config       *config.Config
	QueryService service.QueryService
	Logger       *zap.Logger
	Metrics      *middleware.Metrics
	RateLimiter  *middleware.RateLimiter
}

// New builds the gin engine with every route and middleware
func New(deps Deps) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.HandleMethodNotAllowed = false
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("ignoring invalid trusted proxies", zap.Strings("trusted_proxies", cfg.Server.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Add middleware. Logging and metrics wrap Recovery so recovered panics
	// are still logged and counted as 500s.
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(deps.Metrics.Middleware())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Cors(cfg.Security.AllowedOrigins))
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.RateLimit())
	}

	healthController := controller.NewHealthController()
	queryController := controller.NewQueryController(deps.QueryService, logger)
	docsController := controller.NewDocsController(cfg.Docs.ProductionURL, cfg.Server.Port, logger)

	// Public endpoints
	router.GET("/", healthController.Root)
	router.GET("/health", healthController.HealthCheck)

	// API docs
	router.GET(controller.DocsPath, security.DocsTokenAuth(cfg.Security.DocsToken), docsController.Document)
	router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api-docs/index.html")
	})
	router.GET("/api-docs/*any", docsController.UI)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Warehouse endpoints (API key required)
	query := router.Group("/query")
	query.Use(security.APIKeyAuth(cfg.Security.APIKey))
	{
		query.POST("", queryController.ExecuteQuery)
		query.GET("/catalog-datasets", queryController.ListCatalog)
		query.GET("/datasets", queryController.ListDatasets)
		query.GET("/datasets/:datasetId/tables", queryController.ListTables)
		query.GET("/tables/:datasetId/:tableId/schema", queryController.GetTableSchema)
	}

	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFoundResponse(c.Request.Method, c.Request.RequestURI))
	}
	router.NoRoute(notFound)
	router.NoMethod(notFound)

	return router
}
