// Package server exposes the HTTP API. Handlers stay thin: bind, call a
// service, map the error.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	commissionservice "github.com/uplinelabs/upline/internal/commission/service"
	"github.com/uplinelabs/upline/internal/config"
	ledgerservice "github.com/uplinelabs/upline/internal/ledger/service"
	memberservice "github.com/uplinelabs/upline/internal/member/service"
	profitshareservice "github.com/uplinelabs/upline/internal/profitshare/service"
	rateconfigservice "github.com/uplinelabs/upline/internal/rateconfig/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	log      *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry

	memberSvc     *memberservice.Service
	rateSvc       *rateconfigservice.Service
	commissionSvc *commissionservice.Service
	ledgerSvc     *ledgerservice.Service
	profitSvc     *profitshareservice.Service
}

type ServerParam struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	Registry *prometheus.Registry `optional:"true"`

	MemberSvc     *memberservice.Service
	RateSvc       *rateconfigservice.Service
	CommissionSvc *commissionservice.Service
	LedgerSvc     *ledgerservice.Service
	ProfitSvc     *profitshareservice.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		log:           p.Log.Named("server"),
		db:            p.DB,
		registry:      p.Registry,
		memberSvc:     p.MemberSvc,
		rateSvc:       p.RateSvc,
		commissionSvc: p.CommissionSvc,
		ledgerSvc:     p.LedgerSvc,
		profitSvc:     p.ProfitSvc,
	}
}

func NewEngine(cfg config.Config, s *Server) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.RegisterRoutes(engine)
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/readyz", s.Readyz)
	if s.registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/v1")

	v1.GET("/commission/schedule", s.GetSchedule)
	v1.PUT("/commission/schedule", s.ReplaceSchedule)

	v1.POST("/purchases", s.ProcessPurchase)

	v1.GET("/commissions", s.ListCommissions)
	v1.GET("/commissions/:id", s.GetCommission)
	v1.POST("/commissions/bulk-decision", s.BulkDecideCommissions)
	v1.POST("/commissions/:id/adjust", s.AdjustCommission)
	v1.POST("/commissions/:id/reset", s.ResetCommission)

	v1.GET("/wallets/:id/balance", s.GetBalance)
	v1.GET("/wallets/:id/transactions", s.ListWalletTransactions)
	v1.GET("/wallets/integrity", s.WalletIntegrity)
	v1.POST("/wallets/topups", s.RequestTopUp)
	v1.POST("/wallets/topups/:id/verify", s.VerifyTopUp)
	v1.POST("/wallets/withdrawals", s.RequestWithdrawal)
	v1.POST("/wallets/withdrawals/:id/approve", s.ApproveWithdrawal)
	v1.POST("/wallets/loans", s.IssueLoan)
	v1.POST("/wallets/loans/repayments", s.RepayLoan)

	v1.POST("/members", s.CreateMember)
	v1.GET("/members", s.ListMembers)
	v1.GET("/members/:id", s.GetMember)
	v1.GET("/members/:id/chain", s.GetMemberChain)
	v1.POST("/members/:id/kit", s.GrantKit)
	v1.PATCH("/members/:id/status", s.SetMemberStatus)

	v1.POST("/profit-shares", s.CreateProfitShareRun)
	v1.GET("/profit-shares", s.ListProfitShareRuns)
	v1.GET("/profit-shares/:id", s.GetProfitShareRun)
	v1.POST("/profit-shares/:id/approve", s.ApproveProfitShareRun)
	v1.POST("/profit-shares/:id/distribute", s.DistributeProfitShareRun)
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Readyz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

var Module = fx.Module("server",
	fx.Provide(
		NewServer,
		NewEngine,
	),
)

// Start binds the listener on app start and drains it on shutdown.
func Start(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server exited", zap.Error(err))
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
