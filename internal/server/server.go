package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"school-chatbot/internal/handler"
	"school-chatbot/internal/middleware"
	"school-chatbot/internal/service"
)

// Deps are the services the HTTP API exposes.
type Deps struct {
	Chat         handler.ChatService
	Admin        service.AdminService
	Auth         service.AuthService
	Gatherer     prometheus.Gatherer
	ModelInfo    func() map[string]interface{}
	HistoryLimit int
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
}

func NewServer(addr string, allowedOrigins []string, deps Deps, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	chatHandler := handler.NewChatHandler(s.deps.Chat, s.deps.HistoryLimit, s.logger)
	adminHandler := handler.NewAdminHandler(s.deps.Admin, s.deps.Auth, s.logger)

	s.router.GET("/health", s.health)
	s.router.GET("/", s.health)

	if s.deps.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	s.router.POST("/chat", chatHandler.Chat)
	s.router.GET("/chat/history/:student_id", chatHandler.History)

	s.router.POST("/admin/login", adminHandler.Login)

	admin := s.router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(s.deps.Auth, s.logger))
	{
		admin.GET("/students", adminHandler.ListStudents)
		admin.POST("/students", adminHandler.CreateStudent)
		admin.PUT("/students/:id", adminHandler.UpdateStudent)
		admin.DELETE("/students/:id", adminHandler.DeleteStudent)
		admin.POST("/marks", adminHandler.SaveMark)
		admin.POST("/attendance", adminHandler.SaveAttendance)
		admin.POST("/upload", adminHandler.Upload)
		admin.GET("/report/:id", adminHandler.Report)
	}
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"message": "School chatbot running",
	}
	if s.deps.ModelInfo != nil {
		resp["llm"] = s.deps.ModelInfo()
	}
	c.JSON(http.StatusOK, resp)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
