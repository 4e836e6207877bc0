package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

func TestRewardHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(m *MockRewarder)
		wantStatus int
		wantBody   string
	}{
		{
			name: "credited",
			body: RewardRequest{Amount: "2.5", Source: "quiz", IdempotencyKey: "quiz:42"},
			setup: func(m *MockRewarder) {
				m.On("Reward", mock.Anything, decimal.RequireFromString("2.5"), "quiz", "quiz:42").
					Return(decimal.RequireFromString("12.5"), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"balance":"12.5"`,
		},
		{
			name:       "negative amount",
			body:       RewardRequest{Amount: "-1", Source: "quiz", IdempotencyKey: "quiz:43"},
			setup:      func(m *MockRewarder) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"amount":"Must be greater than 0"`,
		},
		{
			name:       "missing key",
			body:       RewardRequest{Amount: "1", Source: "quiz"},
			setup:      func(m *MockRewarder) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"idempotency_key":"This field is required"`,
		},
		{
			name: "unknown account",
			body: RewardRequest{Amount: "1", Source: "quiz", IdempotencyKey: "quiz:44"},
			setup: func(m *MockRewarder) {
				m.On("Reward", mock.Anything, mock.Anything, "quiz", "quiz:44").
					Return(decimal.Zero, domain.ErrAccountNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   ErrMsgAccountNotFoundError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockRewarder{}
			tt.setup(m)
			h := NewRewardHandler(m)

			w := httptest.NewRecorder()
			h.HandleReward(w, httptest.NewRequest(http.MethodPost, "/rewards", jsonBody(t, tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			m.AssertExpectations(t)
		})
	}
}
