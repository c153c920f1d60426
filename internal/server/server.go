package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	capacitydomain "github.com/clubnite/doorman/internal/capacity/domain"
	clubdomain "github.com/clubnite/doorman/internal/club/domain"
	"github.com/clubnite/doorman/internal/config"
	ledgerdomain "github.com/clubnite/doorman/internal/ledger/domain"
	"github.com/clubnite/doorman/internal/observability"
	"github.com/clubnite/doorman/internal/observability/logger"
	"github.com/clubnite/doorman/internal/observability/metrics"
	"github.com/clubnite/doorman/internal/observability/tracing"
	recondomain "github.com/clubnite/doorman/internal/reconciliation/domain"
	roomdomain "github.com/clubnite/doorman/internal/room/domain"
	ticketdomain "github.com/clubnite/doorman/internal/ticket/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg            config.Config
	ObsCfg         observability.Config
	Log            *zap.Logger
	DB             *gorm.DB
	Capacity       capacitydomain.Service
	Tickets        ticketdomain.Service
	Ledger         ledgerdomain.Service
	Reconciliation recondomain.Service
	ClubRepo       clubdomain.Repository
	HTTPMetrics    *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	cfg            config.Config
	obsCfg         observability.Config
	log            *zap.Logger
	db             *gorm.DB
	capacity       capacitydomain.Service
	tickets        ticketdomain.Service
	ledger         ledgerdomain.Service
	reconciliation recondomain.Service
	clubRepo       clubdomain.Repository
	httpMetrics    *metrics.HTTPMetrics
}

func New(p Params) *Server {
	return &Server{
		cfg:            p.Cfg,
		obsCfg:         p.ObsCfg,
		log:            p.Log.Named("server"),
		db:             p.DB,
		capacity:       p.Capacity,
		tickets:        p.Tickets,
		ledger:         p.Ledger,
		reconciliation: p.Reconciliation,
		clubRepo:       p.ClubRepo,
		httpMetrics:    p.HTTPMetrics,
	}
}

func (s *Server) Router() *gin.Engine {
	if !s.obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Debug:           s.obsCfg.Debug(),
		ErrorClassifier: classifyForLog,
	}))
	engine.Use(tracing.GinMiddleware())
	engine.Use(metrics.GinMiddleware(s.httpMetrics))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.cfg.AppName, "version": s.cfg.AppVersion})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		rooms := v1.Group("/rooms/:roomId")
		rooms.GET("/capacity", s.getCapacityStatus)
		rooms.POST("/capacity/can-purchase", s.canPurchaseTickets)
		rooms.POST("/capacity/can-walk-in", s.canJoinAsWalkIn)

		rooms.POST("/tickets", s.createTicket)

		rooms.GET("/ledger/entries", s.listLedgerEntries)
		rooms.POST("/ledger/entries", s.createLedgerEntry)
		rooms.POST("/ledger/claim", s.claimPayment)
		rooms.POST("/ledger/confirm", s.confirmPayment)
		rooms.GET("/ledger/summary", s.getFinancialReport)

		rooms.POST("/reconciliation", s.saveReconciliation)
		rooms.POST("/reconciliation/approve", s.approveReconciliation)
		rooms.GET("/reconciliation/export", s.exportReconciliation)

		v1.GET("/tickets/:ticketId", s.getTicket)
		v1.POST("/tickets/:ticketId/confirm", s.confirmTicket)
		// Redemption is keyed by join token, not ticket id.
		v1.POST("/redemptions", s.redeemTicket)

		v1.GET("/clubs/:clubId/payment-methods", s.listClubPaymentMethods)
	}

	return engine
}

// RunHTTP binds the router to the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              ":" + s.cfg.HTTPPort,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RunHTTP),
)

func parseRoomID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("roomId"))
	if err != nil {
		abortWithError(c, roomdomain.ErrInvalidID)
		return 0, false
	}
	return id, true
}
