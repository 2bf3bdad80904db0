package server

import (
	"context"
	"net/http"

	"github.com/Kaushikmangukiya360/student-friend/internal/auth"
	"github.com/Kaushikmangukiya360/student-friend/internal/config"
	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"
	"github.com/Kaushikmangukiya360/student-friend/internal/notifier"
	"github.com/Kaushikmangukiya360/student-friend/internal/payment"
	"github.com/Kaushikmangukiya360/student-friend/internal/session"
	"github.com/Kaushikmangukiya360/student-friend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifierService *notifier.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	ledgerRepo := ledger.NewRepository(db)
	userRepo := user.NewRepository(db)
	sessionService := session.NewService(session.NewRepository(db), ledgerRepo, userRepo, notifierService)
	paymentService := payment.NewService(payment.NewRepository(db), ledgerRepo, notifierService,
		cfg.GatewayKeyID, cfg.GatewaySecret)

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	ledgerHandler := ledger.NewHandler(db)
	sessionHandler := session.NewHandler(sessionService)
	paymentHandler := payment.NewHandler(paymentService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet/balance", ledgerHandler.GetBalance)
		protected.GET("/wallet/transactions", ledgerHandler.ListTransactions)
		protected.POST("/wallet/topup/initiate", paymentHandler.InitiateTopUp)
		protected.POST("/wallet/topup/verify", paymentHandler.VerifyTopUp)
		protected.GET("/wallet/payments", paymentHandler.ListPayments)

		protected.GET("/sessions", sessionHandler.ListSessions)
		protected.POST("/sessions", auth.RequireRole(user.RoleStudent), sessionHandler.CreateBooking)
		protected.POST("/sessions/:sessionID/decision", auth.RequireRole(user.RoleFaculty), sessionHandler.DecideBooking)
		protected.POST("/sessions/:sessionID/complete", auth.RequireRole(user.RoleFaculty), sessionHandler.CompleteSession)
		protected.POST("/sessions/:sessionID/cancel", auth.RequireRole(user.RoleStudent), sessionHandler.CancelSession)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(user.RoleAdmin))
	{
		admin.POST("/faculty/:userID/verify", userHandler.VerifyFaculty)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.srv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
