package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// BoostService is the subset of boost.Service exposed over HTTP.
type BoostService interface {
	Grant(ctx context.Context, entry domain.BoostEntry) error
	Withdraw(ctx context.Context, kind domain.BoostKind) error
	Active() []domain.BoostEntry
}

// BoostHandler lets side features grant and withdraw rate multipliers.
type BoostHandler struct {
	service BoostService
	clock   domain.Clock
}

// NewBoostHandler creates a new boost handler
func NewBoostHandler(service BoostService, clock domain.Clock) *BoostHandler {
	return &BoostHandler{service: service, clock: clock}
}

// GrantBoostRequest is the request body for granting a boost. Exactly one of
// DurationSeconds and Permanent should be set; neither means the boost never expires.
type GrantBoostRequest struct {
	Kind            string `json:"kind" validate:"required,boostkind"`
	Multiplier      string `json:"multiplier" validate:"required,decimal,decimal_gte=1"`
	DurationSeconds int64  `json:"duration_seconds" validate:"min=0,max=31536000"`
	Permanent       bool   `json:"permanent"`
	Source          string `json:"source" validate:"required,max=100,excludesall=\x00"`
}

// BoostsResponse lists the live boosts and their combined multiplier.
type BoostsResponse struct {
	Message    string              `json:"message,omitempty"`
	Boosts     []domain.BoostEntry `json:"boosts"`
	Multiplier decimal.Decimal     `json:"multiplier"`
}

// HandleList returns the boosts live now.
func (h *BoostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.response(""))
}

// HandleGrant grants or replaces the boost of the requested kind.
func (h *BoostHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	var req GrantBoostRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Grant boost"); err != nil {
		return
	}

	multiplier, err := decimal.NewFromString(req.Multiplier)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidMultiplier)
		return
	}

	entry := domain.BoostEntry{
		Kind:       domain.BoostKind(req.Kind),
		Multiplier: multiplier,
		Permanent:  req.Permanent,
		Source:     req.Source,
	}
	if !req.Permanent && req.DurationSeconds > 0 {
		expires := domain.TruncateMillis(h.clock.Now().Add(time.Duration(req.DurationSeconds) * time.Second))
		entry.ExpiresAt = &expires
	}

	if err := h.service.Grant(r.Context(), entry); err != nil {
		respondServiceError(w, r, "Grant boost", err)
		return
	}

	logger.FromContext(r.Context()).Info("Boost granted", "kind", entry.Kind, "multiplier", entry.Multiplier.String(), "source", entry.Source)
	respondJSON(w, http.StatusCreated, h.response(MsgBoostGranted))
}

// HandleWithdraw removes the boost named by the {kind} path parameter.
func (h *BoostHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	kind, ok := GetURLParam(r, w, "kind")
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), domain.BoostKind(kind)); err != nil {
		respondServiceError(w, r, "Withdraw boost", err)
		return
	}

	respondJSON(w, http.StatusOK, h.response(MsgBoostWithdrawn))
}

func (h *BoostHandler) response(msg string) BoostsResponse {
	active := h.service.Active()
	if active == nil {
		active = []domain.BoostEntry{}
	}
	product := decimal.NewFromInt(1)
	for _, b := range active {
		product = product.Mul(b.Multiplier)
	}
	return BoostsResponse{Message: msg, Boosts: active, Multiplier: product}
}
