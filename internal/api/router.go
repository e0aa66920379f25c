package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/tantalumq/taco/internal/api/handler"
	customMiddleware "github.com/tantalumq/taco/internal/api/middleware"
	"github.com/tantalumq/taco/internal/bus"
	"github.com/tantalumq/taco/internal/config"
	"github.com/tantalumq/taco/internal/repository/postgres"
	"github.com/tantalumq/taco/internal/repository/redis"
	"github.com/tantalumq/taco/internal/security"
	"github.com/tantalumq/taco/internal/service"
	"github.com/tantalumq/taco/internal/ws"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client, eventBus *bus.Bus) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	chatRepo := postgres.NewChatRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)

	presence := redis.NewPresenceStore(redisClient)
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	// Services
	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	authService := service.NewAuthService(userRepo, sessionRepo, hasher, cfg.Auth.SessionTTL)
	chatService := service.NewChatService(chatRepo, messageRepo, userRepo, eventBus)
	userService := service.NewUserService(userRepo, presence)

	// WebSocket manager
	wsManager := ws.NewManager(eventBus, authService, presence, ws.Options{
		WriteTimeout:    cfg.WS.WriteTimeout,
		PongTimeout:     cfg.WS.PongTimeout,
		PingInterval:    cfg.WS.PingInterval,
		ReadLimit:       cfg.WS.ReadLimit,
		ReadBufferSize:  cfg.WS.ReadBufferSize,
		WriteBufferSize: cfg.WS.WriteBufferSize,
	}, log.Logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	userHandler := handler.NewUserHandler(userService)

	authMiddleware := customMiddleware.NewAuthMiddleware(authService)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	// Health
	r.Get("/health", handler.HealthCheck)
	r.Get("/ready", handler.ReadyCheck(db))

	// Public routes
	r.Post("/register", authHandler.Register)
	r.Post("/log_in", authHandler.LogIn)

	// The upgrade request authenticates itself from its bearer header,
	// so it bypasses the HTTP middleware chain's timeout.
	r.Get("/ws", wsManager.ServeHTTP)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
		r.Use(authMiddleware.Authenticate)
		r.Use(rateLimitMiddleware.Limit)

		r.Post("/log_out", authHandler.LogOut)

		r.Get("/chats", chatHandler.ListChats)
		r.Post("/create_chat", chatHandler.CreateChat)
		r.Post("/leave_chat", chatHandler.LeaveChat)

		r.Get("/messages/{chatID}", chatHandler.GetMessages)
		r.Post("/create_message", chatHandler.CreateMessage)
		r.Post("/delete_message", chatHandler.DeleteMessage)

		r.Get("/status/{userID}", userHandler.Status)
		r.Post("/update_profile", userHandler.UpdateProfile)
	})

	return r
}
