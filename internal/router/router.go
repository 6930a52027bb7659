package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/health"
	promhandler "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/prometheus"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/handler/share"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/middleware"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
)

// Handler mounts routes on an authenticated group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit     rate.Limit
	RateBurst     int
	Timeout       time.Duration
	MaxUploadSize int64
	CORSConfig    middleware.CORSConfig
	Registry      *prometheus.Registry
	Metrics       *metrics.Metrics
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	health  *health.Handler
	records []Handler
	share   *share.Handler
	config  RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	shareH *share.Handler,
	config RouterConfig,
	recordHs ...Handler,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		health:  healthH,
		records: recordHs,
		share:   shareH,
		config:  config,
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxUploadSize > 0 {
		sizeLimit.MaxUploadSize = config.MaxUploadSize
	}
	timeout := middleware.DefaultTimeoutConfig()
	if config.Timeout > 0 {
		timeout.Duration = config.Timeout
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Timeout(timeout),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}
	engine.Use(middleware.SizeLimit(sizeLimit))

	return r
}

func (r *Router) Setup() {
	if r.config.Registry != nil {
		promhandler.New(r.config.Registry).RegisterRoutes(r.engine)
	}

	api := r.engine.Group("/api")
	api.Use(middleware.Cache(middleware.NoStoreConfig()))

	// Public routes
	r.health.RegisterRoutes(api)
	r.share.RegisterPublicRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.records {
		h.RegisterRoutes(protected)
	}
	r.share.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
