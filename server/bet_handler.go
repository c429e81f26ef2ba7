package server

import (
	"net/http"

	"github.com/0xHustling/LP-Betting-Pools/auth"
	"github.com/0xHustling/LP-Betting-Pools/engine"
	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BetHandler serves the bet lifecycle endpoints
type BetHandler struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewBetHandler creates a bet handler
func NewBetHandler(e *engine.Engine, logger zerolog.Logger) *BetHandler {
	return &BetHandler{
		engine: e,
		logger: logger.With().Str("component", "bet_handler").Logger(),
	}
}

// PlaceBetRequest is the bet placement DTO
type PlaceBetRequest struct {
	Stake decimal.Decimal `json:"stake" binding:"required"`
}

// PlaceBet handles POST /api/bets
func (h *BetHandler) PlaceBet(c *gin.Context) {
	account, ok := auth.GetAccount(c)
	if !ok || account == "" {
		Unauthorized(c, errors.New(errors.ErrUnauthorized, "unknown account"))
		return
	}
	role, _ := auth.GetRole(c)

	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid bet request"))
		return
	}

	bet, err := h.engine.PlaceBet(c.Request.Context(), engine.PlaceBetRequest{
		Bettor: account,
		Stake:  req.Stake,
		Origin: engine.Origin(role),
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	Created(c, bet.Record())
}

// ForceRefund handles POST /api/bets/:ticket_id/refund. Only the bettor who
// placed the bet (or an operator) may trigger the refund.
func (h *BetHandler) ForceRefund(c *gin.Context) {
	account, ok := auth.GetAccount(c)
	if !ok || account == "" {
		Unauthorized(c, errors.New(errors.ErrUnauthorized, "unknown account"))
		return
	}

	ticketID, err := uuid.Parse(c.Param("ticket_id"))
	if err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid ticket id"))
		return
	}

	bet, found := h.engine.GetBet(ticketID)
	if !found {
		NotFound(c, errors.New(errors.ErrBetNotFound, "bet not found"))
		return
	}
	role, _ := auth.GetRole(c)
	if bet.Bettor != account && role != auth.RoleOperator {
		Error(c, http.StatusForbidden, errors.New(errors.ErrForbidden, "refund can only be requested by the bettor"))
		return
	}

	if err := h.engine.ForceRefund(c.Request.Context(), ticketID); err != nil {
		HandleAppError(c, err)
		return
	}

	refunded, _ := h.engine.GetBet(ticketID)
	OK(c, refunded.Record())
}

// GetBet handles GET /api/bets/:ticket_id
func (h *BetHandler) GetBet(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("ticket_id"))
	if err != nil {
		BadRequest(c, errors.New(errors.ErrInvalidRequest, "invalid ticket id"))
		return
	}

	bet, found := h.engine.GetBet(ticketID)
	if !found {
		NotFound(c, errors.New(errors.ErrBetNotFound, "bet not found"))
		return
	}

	OK(c, bet.Record())
}
