package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/handler"
	"github.com/stemsi/quizattempt/internal/middleware"
	"github.com/stemsi/quizattempt/internal/response"
	"github.com/stemsi/quizattempt/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt   *handler.AttemptHandler
	AntiCheat *handler.AntiCheatHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// cheatLimiter throttles anti-cheat reports per learner and attempt.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cheatLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Learner Group (JWT) ────────────────────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(middleware.RequireLearnerJWT(authService))
	{
		learnerAPI.POST("/quizzes/:quiz_id/attempts", handlers.Attempt.StartAttempt)

		attempt := learnerAPI.Group("/attempts/:attempt_id")
		{
			attempt.GET("", handlers.Attempt.GetState)
			attempt.GET("/paper", handlers.Attempt.GetPaper)
			attempt.PUT("/answers", handlers.Attempt.SelectAnswer)
			attempt.POST("/marks", handlers.Attempt.ToggleMark)
			attempt.PUT("/position", handlers.Attempt.Navigate)
			attempt.POST("/checkpoint", handlers.Attempt.SaveCheckpoint)
			attempt.POST("/submit", handlers.Attempt.Submit)
			attempt.GET("/result", handlers.Attempt.GetResult)

			attempt.POST("/events", cheatLimiter.Middleware(), handlers.AntiCheat.LogEvent)
			attempt.GET("/events", handlers.AntiCheat.ListEvents)
		}
	}

	// ─── 2. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
