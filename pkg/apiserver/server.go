package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/apiserver/handlers"
	"github.com/loanflow/loanflow/pkg/apiserver/middleware"
	"github.com/loanflow/loanflow/pkg/auth"
	"github.com/loanflow/loanflow/pkg/config"
)

type Server struct {
	router       *gin.Engine
	applications handlers.ApplicationService
	loanTypes    handlers.LoanTypeService
	tokens       *auth.TokenManager
	cfg          *config.Config
	logger       *zap.Logger
}

func NewServer(applications handlers.ApplicationService, loanTypes handlers.LoanTypeService, tokens *auth.TokenManager, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		applications: applications,
		loanTypes:    loanTypes,
		tokens:       tokens,
		cfg:          cfg,
		logger:       logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS(s.cfg.Server.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		if s.cfg.RateLimit.Enabled {
			api.Use(middleware.RateLimit(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst))
		}
		api.Use(middleware.Auth(s.tokens))

		applicationHandler := handlers.NewApplicationHandler(s.applications, s.logger)
		api.POST("/applications", applicationHandler.Create)
		api.GET("/applications/review", middleware.RequireRoles(s.cfg.Auth.ReviewerRoles...), applicationHandler.ListForReview)
		api.PUT("/applications/decision", middleware.RequireRoles(s.cfg.Auth.DecisionRoles...), applicationHandler.Decide)
		api.GET("/applications/:id", applicationHandler.Get)

		loanTypeHandler := handlers.NewLoanTypeHandler(s.loanTypes, s.logger)
		api.GET("/loan-types", loanTypeHandler.List)
		api.GET("/loan-types/:id", loanTypeHandler.Get)
		api.POST("/loan-types", middleware.RequireRoles(s.cfg.Auth.AdminRoles...), loanTypeHandler.Create)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
