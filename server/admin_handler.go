package server

import (
	"github.com/0xHustling/LP-Betting-Pools/engine"
	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AdminHandler serves operator-only controls
type AdminHandler struct {
	pool   *pool.Pool
	engine *engine.Engine
	logger zerolog.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(p *pool.Pool, e *engine.Engine, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		pool:   p,
		engine: e,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Pause handles POST /api/admin/pause
func (h *AdminHandler) Pause(c *gin.Context) {
	h.engine.Pause()
	h.logger.Warn().Msg("Betting engine paused")
	OK(c, gin.H{"paused": true})
}

// Unpause handles POST /api/admin/unpause
func (h *AdminHandler) Unpause(c *gin.Context) {
	h.engine.Unpause()
	h.logger.Info().Msg("Betting engine unpaused")
	OK(c, gin.H{"paused": false})
}

// SetLimitsRequest is the bet bounds DTO
type SetLimitsRequest struct {
	MinBet decimal.Decimal `json:"min_bet" binding:"required"`
	MaxBet decimal.Decimal `json:"max_bet" binding:"required"`
}

// SetLimits handles POST /api/admin/limits
func (h *AdminHandler) SetLimits(c *gin.Context) {
	var req SetLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid limits request"))
		return
	}

	if err := h.engine.SetBetLimits(req.MinBet, req.MaxBet); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("min_bet", req.MinBet.String()).
		Str("max_bet", req.MaxBet.String()).
		Msg("Bet limits updated")
	OK(c, gin.H{"min_bet": req.MinBet, "max_bet": req.MaxBet})
}

// SetFeesRequest is the fee configuration DTO. Either field may be omitted.
type SetFeesRequest struct {
	ProtocolFeeBps *int64 `json:"protocol_fee_bps"`
	ExitFeeBps     *int64 `json:"exit_fee_bps"`
}

// SetFees handles POST /api/admin/fees
func (h *AdminHandler) SetFees(c *gin.Context) {
	var req SetFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid fees request"))
		return
	}
	if req.ProtocolFeeBps == nil && req.ExitFeeBps == nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "no fee rates provided"))
		return
	}

	if req.ProtocolFeeBps != nil {
		if err := h.engine.SetProtocolFeeBps(*req.ProtocolFeeBps); err != nil {
			HandleAppError(c, err)
			return
		}
	}
	if req.ExitFeeBps != nil {
		if err := h.pool.SetExitFeeBps(*req.ExitFeeBps); err != nil {
			HandleAppError(c, err)
			return
		}
	}

	h.logger.Info().Msg("Fee rates updated")
	OK(c, req)
}

// SetCapacityRequest is the pool capacity DTO
type SetCapacityRequest struct {
	MaxCapacity decimal.Decimal `json:"max_capacity" binding:"required"`
}

// SetCapacity handles POST /api/admin/capacity
func (h *AdminHandler) SetCapacity(c *gin.Context) {
	var req SetCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid capacity request"))
		return
	}

	if err := h.pool.SetMaxCapacity(req.MaxCapacity); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().Str("max_capacity", req.MaxCapacity.String()).Msg("Pool capacity updated")
	OK(c, gin.H{"max_capacity": req.MaxCapacity})
}

// WithdrawFeesRequest is the fee sweep DTO
type WithdrawFeesRequest struct {
	Recipient string `json:"recipient" binding:"required"`
}

// WithdrawFees handles POST /api/admin/withdraw-fees, sweeping accrued
// protocol fees to the given recipient account.
func (h *AdminHandler) WithdrawFees(c *gin.Context) {
	var req WithdrawFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid withdraw-fees request"))
		return
	}

	amount, err := h.pool.WithdrawAccruedFees(c.Request.Context(), req.Recipient)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info().
		Str("recipient", req.Recipient).
		Str("amount", amount.String()).
		Msg("Accrued protocol fees withdrawn")
	OK(c, gin.H{"recipient": req.Recipient, "amount": amount})
}
