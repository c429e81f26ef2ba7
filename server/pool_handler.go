package server

import (
	"net/http"

	"github.com/0xHustling/LP-Betting-Pools/auth"
	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/pkg/poolfeed"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PoolHandler serves liquidity provider operations and the live pool feed
type PoolHandler struct {
	pool     *pool.Pool
	feed     *poolfeed.Broadcaster
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewPoolHandler creates a pool handler
func NewPoolHandler(p *pool.Pool, feed *poolfeed.Broadcaster, logger zerolog.Logger) *PoolHandler {
	return &PoolHandler{
		pool:   p,
		feed:   feed,
		logger: logger.With().Str("component", "pool_handler").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// DepositRequest is the deposit DTO
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// WithdrawRequest is the withdrawal DTO
type WithdrawRequest struct {
	Shares decimal.Decimal `json:"shares" binding:"required"`
}

// Deposit handles POST /api/pool/deposit
func (h *PoolHandler) Deposit(c *gin.Context) {
	account, ok := auth.GetAccount(c)
	if !ok || account == "" {
		Unauthorized(c, errors.New(errors.ErrUnauthorized, "unknown account"))
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid deposit request"))
		return
	}

	shares, err := h.pool.Deposit(c.Request.Context(), account, req.Amount)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, gin.H{
		"account":       account,
		"amount":        req.Amount,
		"shares_minted": shares,
	})
}

// Withdraw handles POST /api/pool/withdraw
func (h *PoolHandler) Withdraw(c *gin.Context) {
	account, ok := auth.GetAccount(c)
	if !ok || account == "" {
		Unauthorized(c, errors.New(errors.ErrUnauthorized, "unknown account"))
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid withdraw request"))
		return
	}

	paid, err := h.pool.Withdraw(c.Request.Context(), account, req.Shares)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, gin.H{
		"account":       account,
		"shares_burned": req.Shares,
		"amount_paid":   paid,
	})
}

// Stats handles GET /api/pool/stats
func (h *PoolHandler) Stats(c *gin.Context) {
	OK(c, h.pool.Stats())
}

// FinalizeEpoch handles POST /api/pool/finalize-epoch. Callable by anyone;
// the pool itself gates on the epoch clock.
func (h *PoolHandler) FinalizeEpoch(c *gin.Context) {
	if err := h.pool.FinalizeEpoch(); err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, h.pool.Stats())
}

// StreamUpdates handles GET /api/pool/updates/ws, streaming pool snapshots
// over a websocket until the client disconnects.
func (h *PoolHandler) StreamUpdates(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := h.feed.Listen(c.Request.Context())
	defer cancel()

	// Reader goroutine: drains control frames and signals close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current state immediately so clients don't wait for a mutation.
	if err := conn.WriteJSON(h.pool.Stats()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				h.logger.Debug().Err(err).Msg("Websocket write failed, dropping listener")
				return
			}
		}
	}
}
