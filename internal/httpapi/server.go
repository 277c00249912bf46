// Package httpapi exposes the wallet and betting services over a JSON HTTP
// surface with bearer-token auth.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/betbook/internal/eventcache"
	"github.com/MarkoPoloResearchLab/betbook/internal/payments"
	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server aggregates the HTTP surface over the domain services.
type Server struct {
	config      Config
	logger      *zap.Logger
	wallets     *wallet.Service
	withdrawals *wallet.WithdrawalManager
	bets        *betting.Service
	provider    *payments.Client
	cache       *eventcache.Cache
	metrics     *serverMetrics
}

// NewServer validates dependencies and wires a Server. The cache may be nil.
func NewServer(
	config Config,
	logger *zap.Logger,
	wallets *wallet.Service,
	withdrawals *wallet.WithdrawalManager,
	bets *betting.Service,
	provider *payments.Client,
	cache *eventcache.Cache,
) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("logger dependency is nil")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service dependency is nil")
	}
	if withdrawals == nil {
		return nil, fmt.Errorf("withdrawal manager dependency is nil")
	}
	if bets == nil {
		return nil, fmt.Errorf("betting service dependency is nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider dependency is nil")
	}
	return &Server{
		config:      config,
		logger:      logger,
		wallets:     wallets,
		withdrawals: withdrawals,
		bets:        bets,
		provider:    provider,
		cache:       cache,
		metrics:     newServerMetrics(),
	}, nil
}

// Router builds the gin engine with all routes attached.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(server.metrics.middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", server.metrics.handler())

	api := router.Group("/api")
	api.Use(server.authMiddleware())

	api.GET("/wallet", server.handleWallet)
	api.POST("/wallet/deposit", server.handleDeposit)
	api.POST("/wallet/withdraw", server.handleWithdraw)

	api.GET("/bets", server.handleUserBets)
	api.POST("/bets", server.handlePlaceBet)
	api.GET("/bets/events", server.handleOpenEvents)

	operator := api.Group("")
	operator.Use(requireOperator())
	operator.POST("/bets/events", server.handleCreateEvent)
	operator.PATCH("/bets/events/resolve/:id", server.handleResolveEvent)
	operator.PATCH("/bets/events/cancel/:id", server.handleCancelEvent)
	operator.GET("/bets/events/pending", server.handlePendingEvents)
	operator.GET("/bets/all", server.handleAllBets)
	operator.PATCH("/admin/withdraw/:id", server.handleDecideWithdrawal)
	operator.GET("/admin/withdraw/pending", server.handlePendingWithdrawals)
	operator.GET("/admin/stats", server.handleStats)
	operator.GET("/admin/transactions", server.handleAllTransactions)
	operator.GET("/admin/bets/breakdown", server.handleBetBreakdown)

	return router
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.config.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("http api listening", zap.String("addr", server.config.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
