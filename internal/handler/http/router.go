package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/handler/http/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Social  *SocialHandler
	Account *AccountHandler
	Publish *PublishHandler
	Health  *HealthHandler
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with the full route table. The
// callback route is unauthenticated since the browser arrives from the
// provider; brand-scoped routes require the gateway identity headers;
// the publish route is internal and mounted outside /api.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.LoggingMiddleware(deps.Logger),
		middleware.MetricsMiddleware(),
	)

	router.GET("/healthz", deps.Health.Live)
	router.GET("/readyz", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/social/:platform/callback", deps.Social.Callback)

		brands := api.Group("/brands/:brand_id", middleware.IdentityMiddleware())
		{
			brands.GET("/social/:platform/authorize", deps.Social.Authorize)
			brands.POST("/social/:platform/selection", deps.Social.ResolveSelection)

			brands.GET("/accounts", deps.Account.List)
			brands.GET("/accounts/:account_id", deps.Account.Get)
			brands.DELETE("/accounts/:account_id", deps.Account.Delete)
			brands.POST("/accounts/:account_id/disconnect", deps.Account.Disconnect)
			brands.POST("/accounts/:account_id/refresh", deps.Account.Refresh)
		}
	}

	internal := router.Group("/internal/v1")
	{
		internal.POST("/publish", deps.Publish.Publish)
	}

	return router
}
