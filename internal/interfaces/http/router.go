// Package http wires the gin engine and the HTTP server.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omega-networks/mapkit-auth/internal/application/dto"
	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/monitoring"
	"github.com/omega-networks/mapkit-auth/internal/interfaces/http/handlers"
	"github.com/omega-networks/mapkit-auth/internal/interfaces/http/middleware"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// RouterDependencies 路由依赖
type RouterDependencies struct {
	Config      *config.Config
	Logger      logger.Logger
	Tracer      trace.Tracer
	Metrics     *monitoring.Metrics
	RateLimiter service.RateLimitService
	// Gatherer backs /metrics. Nil means the default Prometheus registry.
	Gatherer prometheus.Gatherer

	MapKitHandler *handlers.MapKitHandler
	AdminHandler  *handlers.AdminHandler
	HealthHandler *handlers.HealthHandler
}

// NewRouter 创建并配置 gin 引擎
func NewRouter(deps RouterDependencies) *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(constants.ServiceName + "/http")
	}

	engine.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestID(),
		middleware.Observability(tracer, deps.Metrics),
		middleware.Logging(deps.Logger),
		cors.New(corsConfig(deps.Config)),
	)

	// 健康检查路由（不需要认证）
	engine.GET("/health/live", deps.HealthHandler.LivenessCheck)
	engine.GET("/health/ready", deps.HealthHandler.ReadinessCheck)

	metricsHandler := promhttp.Handler()
	if deps.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}
	engine.GET("/metrics", gin.WrapH(metricsHandler))

	if deps.Config.Monitoring.PprofEnabled {
		pprof.Register(engine)
	}

	var domainMetrics service.Metrics = service.NoopMetrics{}
	if deps.Metrics != nil {
		domainMetrics = monitoring.NewMetricsAdapter(deps.Metrics)
	}

	v1 := engine.Group("/api/v1")
	{
		mapkit := v1.Group("/mapkit")
		{
			renderLimit := middleware.RateLimit(deps.RateLimiter, constants.RateLimitScopeRender, domainMetrics, deps.Logger)
			mapkit.GET("/token", renderLimit, deps.MapKitHandler.IssueToken)
			mapkit.POST("/token", renderLimit, deps.MapKitHandler.IssueToken)

			testLimit := middleware.RateLimit(deps.RateLimiter, constants.RateLimitScopeTest, domainMetrics, deps.Logger)
			mapkit.POST("/credentials/test", testLimit, deps.MapKitHandler.TestCredentials)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(deps.Config.Admin.APIKeys))
		{
			admin.GET("/nonce", deps.AdminHandler.Nonce)
			admin.GET("/settings", deps.AdminHandler.GetSettings)
			admin.PUT("/settings", deps.AdminHandler.SaveSettings)
			admin.DELETE("/settings", deps.AdminHandler.DeleteSettings)
			admin.GET("/audit-events", deps.AdminHandler.ListAuditEvents)
		}
	}

	// 404 处理
	engine.NoRoute(func(c *gin.Context) {
		dto.SendError(c, errors.ErrNotFound("the requested resource was not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		dto.SendError(c, errors.ErrInvalidRequest("method not allowed").WithStatus(http.StatusMethodNotAllowed))
	})

	return engine
}

// corsConfig allows the site origin plus server.allowed_origins. With neither
// configured, or with "*" listed, any origin may call the API.
func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID, constants.HeaderIntegrityToken},
		ExposeHeaders: []string{constants.HeaderRequestID, "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins)+1)
	if origin, ok := (service.OriginPolicy{SiteURL: cfg.Site.URL}).BrowserOrigin(); ok {
		origins = append(origins, origin)
	}
	for _, o := range cfg.Server.AllowedOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

// NewServer builds the http.Server for handler with the configured timeouts.
func NewServer(cfg *config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.Address(),
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}
