package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/common/middleware"
	"github.com/yashrajoria/webook/controllers"
	authmw "github.com/yashrajoria/webook/middleware"
)

// Options carries what the API routes need besides the controllers.
type Options struct {
	Tokens       authmw.TokenValidator
	RequireAdmin bool

	// Users resolves the stored role of authenticated callers. nil trusts
	// the token's role claim.
	Users authmw.AccountFinder
	// Available reports whether the database is usable. nil means always.
	Available func() bool
	// HealthCheck probes the database for /health. nil reports "up".
	HealthCheck func(ctx context.Context) error

	AllowedOrigins     string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	// Registry receives the HTTP metrics and is served on /metrics. nil
	// disables both.
	Registry *prometheus.Registry
}

// Controllers groups the resource controllers.
type Controllers struct {
	Books *controllers.BookController
	Users *controllers.UserController
	Auth  *controllers.AuthController
	Cart  *controllers.CartController
}

// NewRouter builds the engine with the shared middleware stack and every
// route mounted.
func NewRouter(log *zap.Logger, ctrl Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	if opts.Registry != nil {
		metrics := middleware.NewMetrics(opts.Registry, "webook")
		r.Use(metrics.Middleware())
		r.GET("/metrics", middleware.Handler(opts.Registry))
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(opts.RateLimitPerMinute, burstFor(opts.RateLimitPerMinute)))

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(middleware.Timeout(timeout))
	r.Use(apperrors.ErrorMiddleware(log))

	Register(r, ctrl, opts)
	return r
}

func burstFor(perMinute int) int {
	if b := perMinute / 6; b > 10 {
		return b
	}
	return 10
}

// Register mounts /health and every /api route on r.
func Register(r *gin.Engine, ctrl Controllers, opts Options) {
	r.GET("/health", healthHandler(opts.HealthCheck))

	api := r.Group("/api")
	if opts.Available != nil {
		api.Use(middleware.Availability(opts.Available))
	}
	api.Use(authmw.Identity(opts.Tokens))
	if opts.Users != nil {
		api.Use(authmw.CurrentRole(opts.Users))
	}

	RegisterBookRoutes(api, ctrl.Books, opts.RequireAdmin)
	RegisterUserRoutes(api, ctrl.Users, opts.RequireAdmin)
	RegisterAuthRoutes(api, ctrl.Auth)
	RegisterCartRoutes(api, ctrl.Cart)
}

// RegisterBookRoutes sets up the catalog routes. Writes are admin-only
// when requireAdmin is set.
func RegisterBookRoutes(api *gin.RouterGroup, bc *controllers.BookController, requireAdmin bool) {
	books := api.Group("/books")
	books.GET("", bc.GetBooks)
	books.GET("/:id", bc.GetBook)

	admin := books.Group("")
	admin.Use(authmw.AdminOnly(requireAdmin))
	admin.POST("", bc.CreateBook)
	admin.PUT("/:id", bc.UpdateBook)
	admin.DELETE("/:id", bc.DeleteBook)
}

func RegisterUserRoutes(api *gin.RouterGroup, uc *controllers.UserController, requireAdmin bool) {
	users := api.Group("/users")
	users.Use(authmw.AdminOnly(requireAdmin))
	users.GET("", uc.GetUsers)
	users.GET("/:id", uc.GetUser)
	users.PUT("/:id", uc.UpdateUser)
	users.DELETE("/:id", uc.DeleteUser)
}

func RegisterAuthRoutes(api *gin.RouterGroup, ac *controllers.AuthController) {
	auth := api.Group("/auth")
	auth.POST("/login", ac.Login)
	auth.POST("/register", ac.Register)
}

func RegisterCartRoutes(api *gin.RouterGroup, cc *controllers.CartController) {
	cart := api.Group("/cart/:userId")
	cart.Use(authmw.OwnerOrAdmin("userId"))
	cart.GET("", cc.GetCart)
	cart.POST("", cc.AddToCart)
	cart.DELETE("", cc.RemoveFromCart)
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := "up"
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				db = "unavailable"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": db})
	}
}
