package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"sawa/internal/infra/config"
	"sawa/internal/infra/obs"
)

type PricingHTTP interface {
	Preview(c *gin.Context)
	Quote(c *gin.Context)
	HostQuote(c *gin.Context)
}

type CancellationHTTP interface {
	Policies(c *gin.Context)
	Preview(c *gin.Context)
	Cancel(c *gin.Context)
	Get(c *gin.Context)
}

type HostAdminHTTP interface {
	GetCommission(c *gin.Context)
	SetCommission(c *gin.Context)
	PreviewCommission(c *gin.Context)
}

type OfferHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Withdraw(c *gin.Context)
	ListByHost(c *gin.Context)
}

type Handlers struct {
	Pricing        PricingHTTP
	Cancellation   CancellationHTTP
	HostAdmin      HostAdminHTTP
	Offers         OfferHTTP
	AuthMiddleware gin.HandlerFunc
	RateLimit      gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without binding it to an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	if h.Pricing != nil {
		api.POST("/pricing/preview", h.Pricing.Preview)
		api.POST("/pricing/quote", h.Pricing.Quote)
		api.GET("/hosts/:id/quote", h.Pricing.HostQuote)
	}
	if h.Cancellation != nil {
		api.GET("/cancellation/policies", h.Cancellation.Policies)
		api.POST("/cancellation/preview", h.Cancellation.Preview)
		api.POST("/bookings/:id/cancel", h.Cancellation.Cancel)
		api.GET("/bookings/:id/cancellation", h.Cancellation.Get)
	}
	if h.HostAdmin != nil {
		admin := api.Group("/admin/hosts/:id/commission")
		admin.GET("", h.HostAdmin.GetCommission)
		admin.PUT("", h.HostAdmin.SetCommission)
		admin.POST("/preview", h.HostAdmin.PreviewCommission)
	}
	if h.Offers != nil {
		api.POST("/offers", h.Offers.Create)
		api.GET("/offers/:id", h.Offers.Get)
		api.POST("/offers/:id/withdraw", h.Offers.Withdraw)
		api.GET("/hosts/:id/offers", h.Offers.ListByHost)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", headerIdempotencyKey},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.HeaderRequestID,
			headerRateLimitReset,
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
