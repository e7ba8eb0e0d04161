package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"greendrake/freight/internal/api/handlers"
	"greendrake/freight/internal/api/middleware"
	"greendrake/freight/internal/captcha"
	"greendrake/freight/internal/config"
	"greendrake/freight/internal/email"
	"greendrake/freight/internal/services"
	"greendrake/freight/internal/utils"
)

// Services are the collaborators the public API is built from.
type Services struct {
	Users        services.IUserService
	Participants services.IParticipantService
	Auctions     services.IAuctionService
	Assignments  services.IAssignmentService
	Templates    services.ITemplateService
	Captcha      captcha.ITurnstileVerifier
}

// SetupRouter configures and returns the main Gin engine.
// ctx bounds the rate limiter's background cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORSMiddleware(cfg.CorsAllowedOrigins))

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)

	authHandler := handlers.NewRestAuthHandler(svc.Users)
	userHandler := handlers.NewRestUserHandler(svc.Users)
	participantHandler := handlers.NewRestParticipantHandler(svc.Participants)
	auctionHandler := handlers.NewRestAuctionHandler(svc.Auctions, svc.Assignments)
	templateHandler := handlers.NewRestTemplateHandler(svc.Templates, cfg.TemplateMaxUploadSize)

	root := r.Group("/api")
	{
		root.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public account routes; captcha runs first so verified humans skip the soft limit.
		public := root.Group("/auth")
		public.Use(middleware.CaptchaMiddleware(cfg, svc.Captcha), rateLimiter.Limit())
		{
			public.POST("/register", authHandler.Register)
			public.POST("/verify-email", authHandler.VerifyEmail)
			public.POST("/login", authHandler.Login)
			public.POST("/forgot-password", authHandler.ForgotPassword)
			public.POST("/reset-password", authHandler.ResetPassword)
		}

		authRequired := root.Group("")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/users/profile", userHandler.GetProfile)

			authRequired.GET("/participants", participantHandler.ListParticipants)
			authRequired.POST("/participants", participantHandler.CreateParticipant)
			authRequired.GET("/participants/:id", participantHandler.GetParticipant)
			authRequired.PUT("/participants/:id", participantHandler.UpdateParticipant)
			authRequired.DELETE("/participants/:id", participantHandler.DeleteParticipant)

			// Static template routes are registered alongside :id; gin prefers the static segment.
			authRequired.GET("/auctions/template/download", templateHandler.DownloadTemplate)
			authRequired.POST("/auctions/template/validate", templateHandler.ValidateTemplate)

			authRequired.GET("/auctions", auctionHandler.ListAuctions)
			authRequired.POST("/auctions", auctionHandler.CreateAuction)
			authRequired.GET("/auctions/:id", auctionHandler.GetAuction)
			authRequired.PUT("/auctions/:id", auctionHandler.UpdateAuction)
			authRequired.DELETE("/auctions/:id", auctionHandler.DeleteAuction)
			authRequired.POST("/auctions/:id/participants", auctionHandler.AssignParticipants)
			authRequired.GET("/auctions/:id/participants", auctionHandler.ListAssignments)
		}
	}

	return r
}

const (
	mockEmailPollAttempts = 10
	mockEmailPollInterval = 200 * time.Millisecond
)

// SetupServiceRouter configures and returns the service Gin engine.
// It is bound to a private port and drives shutdown and test mail retrieval.
func SetupServiceRouter(rdb redis.Cmdable, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			utils.Info("Received shutdown command via service API", nil)
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				utils.Warn("Shutdown already signaled", nil)
			}
		case "getTestEmail":
			// arguments: [templateID, email]
			var args []string
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			templateID, to := args[0], args[1]

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			var found *email.MockEmail
			for i := 0; i < mockEmailPollAttempts; i++ {
				m, err := email.ReadMockEmail(ctx, rdb, to, templateID)
				if err != nil {
					utils.Error("Service API: failed to read mock email", map[string]any{"error": err.Error(), "template_id": templateID})
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				if m != nil {
					found = m
					rdb.Del(ctx, email.MockEmailKey(to, templateID))
					break
				}
				select {
				case <-ctx.Done():
					i = mockEmailPollAttempts
				case <-time.After(mockEmailPollInterval):
				}
			}

			if found == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", email.MockEmailKey(to, templateID))})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": found})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
