package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"acropolis/internal/infra/config"
	"acropolis/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ChangeStatus(c *gin.Context)
	ApplyDiscount(c *gin.Context)
	RemoveDiscount(c *gin.Context)
	Statistics(c *gin.Context)
}

type ListingHTTP interface {
	Quote(c *gin.Context)
	Availability(c *gin.Context)
	UnavailableRanges(c *gin.Context)
	UnavailableDates(c *gin.Context)
	SaveRateCard(c *gin.Context)
	SetPriceOverride(c *gin.Context)
	AddSeason(c *gin.Context)
}

type Handlers struct {
	Booking BookingHTTP
	Listing ListingHTTP
	// CreateLimiter guards booking creation when set.
	CreateLimiter gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	router := NewRouter(cfg.CORSOrigins, obsMW, health, h)
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(origins []string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", actorHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(ActorMiddleware())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Listing != nil {
		listings := api.Group("/listings/:id")
		listings.GET("/quote", h.Listing.Quote)
		listings.GET("/availability", h.Listing.Availability)
		listings.GET("/unavailable-ranges", h.Listing.UnavailableRanges)
		listings.PUT("", h.Listing.SaveRateCard)
		listings.PUT("/overrides/:date", h.Listing.SetPriceOverride)
		listings.POST("/seasons", h.Listing.AddSeason)
		api.GET("/short-term-bookings/unavailable-dates", h.Listing.UnavailableDates)
	}
	if h.Booking != nil {
		bookings := api.Group("/short-term-bookings")
		create := []gin.HandlerFunc{h.Booking.Create}
		if h.CreateLimiter != nil {
			create = append([]gin.HandlerFunc{h.CreateLimiter}, create...)
		}
		bookings.POST("", create...)
		bookings.GET("", h.Booking.List)
		bookings.GET("/statistics", h.Booking.Statistics)
		bookings.GET("/:id", h.Booking.Get)
		bookings.PATCH("/:id", h.Booking.Update)
		bookings.DELETE("/:id", h.Booking.Delete)
		bookings.PATCH("/:id/status", h.Booking.ChangeStatus)
		bookings.POST("/:id/apply-discount", h.Booking.ApplyDiscount)
		bookings.POST("/:id/remove-discount", h.Booking.RemoveDiscount)
	}
	return router
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

var (
	_ BookingHTTP = BookingHandler{}
	_ ListingHTTP = ListingHandler{}
)
