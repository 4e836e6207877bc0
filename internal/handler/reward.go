package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/logger"
)

// Rewarder credits side-feature rewards to the balance.
type Rewarder interface {
	Reward(ctx context.Context, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error)
}

// RewardHandler serves side-feature balance credits.
type RewardHandler struct {
	rewarder Rewarder
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewarder Rewarder) *RewardHandler {
	return &RewardHandler{rewarder: rewarder}
}

// RewardRequest is the request body for crediting a reward. Replaying the same
// idempotency key credits nothing and returns the current balance.
type RewardRequest struct {
	Amount         string `json:"amount" validate:"required,decimal,decimal_gt=0"`
	Source         string `json:"source" validate:"required,max=100,excludesall=\x00"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=200"`
}

// RewardResponse reports the balance after the credit.
type RewardResponse struct {
	Message string          `json:"message"`
	Balance decimal.Decimal `json:"balance"`
}

// HandleReward credits a reward through the remote store's atomic increment.
func (h *RewardHandler) HandleReward(w http.ResponseWriter, r *http.Request) {
	var req RewardRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Reward"); err != nil {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidAmount)
		return
	}

	total, err := h.rewarder.Reward(r.Context(), amount, req.Source, req.IdempotencyKey)
	if err != nil {
		respondServiceError(w, r, "Reward", err)
		return
	}

	logger.FromContext(r.Context()).Info("Reward credited", "amount", amount.String(), "source", req.Source, "balance", total.String())
	respondJSON(w, http.StatusOK, RewardResponse{Message: MsgRewardCredited, Balance: total})
}
