package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/sse"
)

type fakeSessions struct {
	started bool
}

func (f *fakeSessions) Start(context.Context) error {
	if f.started {
		return domain.ErrSessionActive
	}
	f.started = true
	return nil
}
func (f *fakeSessions) Stop(context.Context) error        { return domain.ErrNoActiveSession }
func (f *fakeSessions) Acknowledge(context.Context) error { return domain.ErrNoConflict }
func (f *fakeSessions) FullSync(context.Context) error    { return nil }
func (f *fakeSessions) Status(time.Time) domain.SessionStatus {
	if f.started {
		return domain.SessionStatus{State: domain.StateActive, Active: true}
	}
	return domain.SessionStatus{State: domain.StateIdle}
}
func (f *fakeSessions) Reward(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, error) {
	return amount, nil
}

type fakeLifecycle struct{ foreground int }

func (f *fakeLifecycle) OnAppForeground(context.Context) error { f.foreground++; return nil }
func (f *fakeLifecycle) OnAppBackground(context.Context) error { return nil }

type fakeBoosts struct{ withdrawn []domain.BoostKind }

func (f *fakeBoosts) Grant(context.Context, domain.BoostEntry) error { return nil }
func (f *fakeBoosts) Withdraw(_ context.Context, kind domain.BoostKind) error {
	f.withdrawn = append(f.withdrawn, kind)
	return nil
}
func (f *fakeBoosts) Active() []domain.BoostEntry { return nil }

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

const testKey = "test-key"

func newTestRouter(t *testing.T) (http.Handler, *fakeSessions, *fakeLifecycle, *fakeBoosts) {
	t.Helper()
	clock := domain.NewSimulatedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	hub := sse.NewHub(clock)
	hub.Start()
	t.Cleanup(hub.Stop)

	sessions := &fakeSessions{}
	lifecycle := &fakeLifecycle{}
	boosts := &fakeBoosts{}
	r := NewRouter(testKey, nil, Deps{
		Remote:    pingOK{},
		Sessions:  sessions,
		Lifecycle: lifecycle,
		Boosts:    boosts,
		Hub:       hub,
		Clock:     clock,
		DeviceID:  "device-a",
	})
	return r, sessions, lifecycle, boosts
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(HeaderAPIKey, testKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_SessionRoutes(t *testing.T) {
	r, sessions, lifecycle, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)

	rec = do(t, r, http.MethodPost, "/api/v1/session/start", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, sessions.started)

	rec = do(t, r, http.MethodPost, "/api/v1/session/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/session/acknowledge", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/lifecycle/foreground", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, lifecycle.foreground)

	rec = do(t, r, http.MethodGet, "/api/v1/session/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_BoostAndRewardRoutes(t *testing.T) {
	r, _, _, boosts := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/boosts", `{"kind":"streak","multiplier":"1.2","source":"streak"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodDelete, "/api/v1/boosts/streak", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.BoostKind{domain.BoostStreak}, boosts.withdrawn)

	rec = do(t, r, http.MethodPost, "/api/v1/rewards", `{"amount":"5","source":"quiz","idempotency_key":"quiz:1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"5"`)
}

func TestRouter_PublicAndProtected(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, HeaderValueNoSniff, rec.Header().Get(HeaderContentType), path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_EventStream(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?access_token="+testKey, nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	connected := false
	for !connected && scanner.Scan() {
		connected = scanner.Text() == "event: "+sse.EventTypeConnected
	}
	assert.True(t, connected)
}
