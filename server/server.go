package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/auth"
	"github.com/0xHustling/LP-Betting-Pools/config"
	"github.com/0xHustling/LP-Betting-Pools/engine"
	"github.com/0xHustling/LP-Betting-Pools/middleware"
	"github.com/0xHustling/LP-Betting-Pools/pkg/poolfeed"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// App represents the betting service application
type App struct {
	engine       *gin.Engine
	config       *config.Config
	logger       zerolog.Logger
	pool         *pool.Pool
	betEngine    *engine.Engine
	feed         *poolfeed.Broadcaster
	httpServer   *http.Server
	onShutdown   []func()
	poolHandler  *PoolHandler
	betHandler   *BetHandler
	adminHandler *AdminHandler
}

// Options holds server configuration options
type Options struct {
	Config *config.Config
	Logger zerolog.Logger
	Pool   *pool.Pool
	Engine *engine.Engine
	Feed   *poolfeed.Broadcaster
}

// New creates a new betting service application
func New(opts Options) *App {
	// Configure decimal.Decimal to marshal as JSON number instead of string
	// WARNING: This may cause precision loss for decimals with many digits when
	// unmarshaled by clients using IEEE 754 double-precision (e.g., JavaScript)
	decimal.MarshalJSONWithoutQuotes = true

	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		engine:    gin.New(),
		config:    opts.Config,
		logger:    opts.Logger,
		pool:      opts.Pool,
		betEngine: opts.Engine,
		feed:      opts.Feed,
	}

	app.poolHandler = NewPoolHandler(opts.Pool, opts.Feed, opts.Logger)
	app.betHandler = NewBetHandler(opts.Engine, opts.Logger)
	app.adminHandler = NewAdminHandler(opts.Pool, opts.Engine, opts.Logger)

	return app
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.engine.Use(middleware.TraceID())

	// Logging middleware
	a.engine.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// RegisterCommonRoutes registers the pool, bet and admin API routes.
//
// Routes registered:
//   - POST /api/pool/deposit          -> PoolHandler.Deposit
//   - POST /api/pool/withdraw         -> PoolHandler.Withdraw
//   - POST /api/pool/finalize-epoch   -> PoolHandler.FinalizeEpoch
//   - GET  /api/pool/stats            -> PoolHandler.Stats
//   - GET  /api/pool/updates/ws       -> PoolHandler.StreamUpdates (WebSocket)
//   - POST /api/bets                  -> BetHandler.PlaceBet
//   - POST /api/bets/:ticket_id/refund -> BetHandler.ForceRefund
//   - GET  /api/bets/:ticket_id       -> BetHandler.GetBet
//   - POST /api/admin/*               -> AdminHandler (operator role required)
func (a *App) RegisterCommonRoutes() {
	jwtMiddleware := auth.JWTMiddleware(a.config.JWT.Secret, a.logger)

	poolGroup := a.engine.Group("/api/pool")
	poolGroup.GET("/stats", a.poolHandler.Stats)
	poolGroup.GET("/updates/ws", a.poolHandler.StreamUpdates)
	poolGroup.Use(jwtMiddleware)
	{
		poolGroup.POST("/deposit", a.poolHandler.Deposit)
		poolGroup.POST("/withdraw", a.poolHandler.Withdraw)
		poolGroup.POST("/finalize-epoch", a.poolHandler.FinalizeEpoch)
	}

	bets := a.engine.Group("/api/bets")
	bets.Use(jwtMiddleware)
	{
		bets.POST("", a.betHandler.PlaceBet)
		bets.GET("/:ticket_id", a.betHandler.GetBet)
		bets.POST("/:ticket_id/refund", a.betHandler.ForceRefund)
	}

	admin := a.engine.Group("/api/admin")
	admin.Use(jwtMiddleware)
	admin.Use(auth.RequireRole(auth.RoleOperator))
	{
		admin.POST("/pause", a.adminHandler.Pause)
		admin.POST("/unpause", a.adminHandler.Unpause)
		admin.POST("/limits", a.adminHandler.SetLimits)
		admin.POST("/fees", a.adminHandler.SetFees)
		admin.POST("/capacity", a.adminHandler.SetCapacity)
		admin.POST("/withdraw-fees", a.adminHandler.WithdrawFees)
	}

	a.logger.Info().Msg("Common routes registered: /api/pool, /api/bets, /api/admin")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(path, handlers...)
}

// AuthGroup creates a route group with JWT authentication
func (a *App) AuthGroup(path string) *gin.RouterGroup {
	return a.engine.Group(path, auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
}

// RegisterRoutes registers custom routes using a callback
func (a *App) RegisterRoutes(fn func(*gin.Engine)) {
	fn(a.engine)
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"service":     a.config.Environment,
		"epoch_state": a.pool.EpochStateNow().String(),
	})
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server with context
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fn := range a.onShutdown {
		fn()
	}

	if a.feed != nil {
		a.feed.Close()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}
