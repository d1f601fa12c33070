package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, authSvc auth.Service, authH *AuthHandler, recipeH *RecipeHandler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	cookies := authH.cookies
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		errorHandlingMiddleware(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins, cookies.CSRFHeader),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	csrf := csrfMiddleware(cookies)
	session := sessionMiddleware(authSvc, cookies)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", authH.Register)
		api.POST("/auth/login", authH.Login)
		// Refresh and logout authenticate via cookies, so both carry the
		// CSRF double-submit check like every other state-changing route.
		api.POST("/session/refresh", csrf, authH.RefreshSession)
		api.POST("/auth/logout", csrf, authH.Logout)
	}

	protected := api.Group("", session)
	{
		protected.GET("/session/verify", authH.VerifySession)

		recipes := protected.Group("/recipes")
		recipes.GET("", recipeH.List)
		recipes.GET("/:id", recipeH.Get)
		recipes.POST("", csrf, recipeH.Create)
		recipes.PUT("/:id", csrf, recipeH.Update)
		recipes.DELETE("/:id", csrf, recipeH.Delete)

		admin := protected.Group("/admin", requireRole(auth.RoleAdmin))
		admin.DELETE("/recipes/:id", csrf, recipeH.Delete)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
