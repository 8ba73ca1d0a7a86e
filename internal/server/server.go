package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/authorization"
	categorydomain "github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/internal/config"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	impactdomain "github.com/smallbiznis/donare/internal/impact/domain"
	"github.com/smallbiznis/donare/internal/observability"
	obsmiddleware "github.com/smallbiznis/donare/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/donare/internal/observability/metrics"
	obstracing "github.com/smallbiznis/donare/internal/observability/tracing"
	"github.com/smallbiznis/donare/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	policy      *authorization.Policy
	donationSvc donationdomain.Service
	categorySvc categorydomain.Service
	impactSvc   impactdomain.Service
	auditSvc    auditdomain.Service
	limiter     *ratelimit.MutationLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Policy      *authorization.Policy
	DonationSvc donationdomain.Service
	CategorySvc categorydomain.Service
	ImpactSvc   impactdomain.Service
	AuditSvc    auditdomain.Service
	Limiter     *ratelimit.MutationLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		policy:      p.Policy,
		donationSvc: p.DonationSvc,
		categorySvc: p.CategorySvc,
		impactSvc:   p.ImpactSvc,
		auditSvc:    p.AuditSvc,
		limiter:     p.Limiter,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.Identity())
	mutation := s.MutationRateLimit()

	// -------- Categories --------
	api.GET("/categories", s.ListCategories)
	api.POST("/categories", mutation, s.CreateCategory)

	// -------- Donations --------
	api.GET("/donations", s.ListDonations)
	api.POST("/donations", mutation, s.CreateDonation)
	api.GET("/donations/:id", s.GetDonation)
	api.DELETE("/donations/:id", mutation, s.DeleteDonation)
	api.POST("/donations/:id/transitions", mutation, s.TransitionDonation)
	for _, action := range donationdomain.Actions() {
		api.POST("/donations/:id/"+string(action), mutation, s.transitionAction(action))
	}

	// -------- Impact --------
	api.GET("/impact", s.GetImpact)

	// -------- Audit --------
	api.GET("/audit-entries", s.ListAuditEntries)
}
