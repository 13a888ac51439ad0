package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	getPendingSavesHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/get_pending_saves"
	savesStreamHandler "github.com/m04kA/SMC-SaveSync/internal/api/handlers/saves_stream"
	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/connectivity"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/infra/kvstore"
	"github.com/m04kA/SMC-SaveSync/internal/infra/storage/durablelog"
	"github.com/m04kA/SMC-SaveSync/internal/service/gateway"
	"github.com/m04kA/SMC-SaveSync/internal/service/savequeue"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
	"github.com/m04kA/SMC-SaveSync/pkg/metrics"
)

// sessionGateway отвечает как backend: без входа - ErrUnauthenticated
type sessionGateway struct {
	session *auth.Session

	mu    sync.Mutex
	saved []domain.OperationType
}

func (g *sessionGateway) save(ctx context.Context, t domain.OperationType) error {
	if _, err := g.session.Current(ctx); err != nil {
		return gateway.ErrUnauthenticated
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, t)
	return nil
}

func (g *sessionGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saved)
}

func (g *sessionGateway) SaveProfile(ctx context.Context, _ string, _ *domain.ProfilePayload) error {
	return g.save(ctx, domain.OperationProfile)
}

func (g *sessionGateway) SaveStatus(ctx context.Context, _ string, _ *domain.StatusPayload) error {
	return g.save(ctx, domain.OperationStatus)
}

func (g *sessionGateway) SaveAvailability(ctx context.Context, _ string, _ *domain.AvailabilityPayload) error {
	return g.save(ctx, domain.OperationAvailability)
}

func (g *sessionGateway) SavePayment(ctx context.Context, _ string, _ *domain.PaymentPayload) error {
	return g.save(ctx, domain.OperationPayment)
}

func (g *sessionGateway) SaveSettings(ctx context.Context, _ string, _ *domain.SettingsPayload) error {
	return g.save(ctx, domain.OperationSettings)
}

type testServer struct {
	srv     *httptest.Server
	gw      *sessionGateway
	sw      *connectivity.Switch
	manager *savequeue.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithMetrics(t, nil)
}

func newTestServerWithMetrics(t *testing.T, m *metrics.Metrics) *testServer {
	t.Helper()

	log := logger.Nop()
	session := auth.NewSession()
	gw := &sessionGateway{session: session}
	sw := connectivity.NewSwitch(true)
	journal := durablelog.New(kvstore.NewMemory(), "", log)

	manager := savequeue.NewManager(gw, journal, sw, log,
		savequeue.WithInterRecordDelay(0),
		savequeue.WithAttemptTimeout(0),
	)
	manager.Start(context.Background())

	router := NewRouter(Deps{
		Manager:     manager,
		Switch:      sw,
		Session:     session,
		Metrics:     m,
		MetricsPath: "/metrics",
	}, log)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		// Stop закрывает подписки, и открытые websocket-обработчики завершаются
		manager.Stop()
		srv.Close()
	})

	return &testServer{srv: srv, gw: gw, sw: sw, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRouter_SaveOnlineAfterSignIn(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPut, "/api/v1/session", `{"userId":"provider-42"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/saves/status", `{"status":"Available"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var result domain.SaveResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.OperationID)
	assert.Equal(t, 1, s.gw.count())
	assert.Zero(t, s.manager.Len())
}

func TestRouter_AuthRequiredKeepsRecord(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/saves/status", `{"status":"Busy"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var result domain.SaveResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.SavedOffline)
	assert.True(t, result.AuthRequired)
	assert.Zero(t, result.RetryCount)
	assert.Equal(t, 1, s.manager.Len())

	resp, body = s.do(t, http.MethodPost, "/api/v1/saves/retry", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var retry domain.RetryResult
	require.NoError(t, json.Unmarshal(body, &retry))
	assert.Zero(t, retry.Saved)
	assert.Equal(t, 1, retry.Remaining)
}

func TestRouter_SignInDrainsWaitingSaves(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/saves/status", `{"status":"Busy"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/api/v1/saves/payment",
		`{"bankName":"BCA","accountName":"Ayu","accountNumber":"1234567890"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 2, s.manager.Len())

	resp, _ = s.do(t, http.MethodPut, "/api/v1/session", `{"userId":"provider-42"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// страховочный проход редкий, записи уносит проход, запрошенный входом
	assert.Eventually(t, func() bool { return s.manager.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, s.gw.count())
}

func TestRouter_OfflineQueueListAndClear(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPut, "/api/v1/connectivity", `{"online":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"online":false,"changed":true}`, string(body))

	resp, _ = s.do(t, http.MethodPost, "/api/v1/saves/payment",
		`{"bankName":"BCA","accountName":"Ayu","accountNumber":"1234567890"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/saves", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pending getPendingSavesHandler.PendingSavesResponse
	require.NoError(t, json.Unmarshal(body, &pending))
	assert.Equal(t, 1, pending.Count)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, "payment", pending.Items[0].Type)

	resp, body = s.do(t, http.MethodDelete, "/api/v1/saves", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cleared":1}`, string(body))
	assert.Zero(t, s.gw.count())
}

func TestRouter_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown type", http.MethodPost, "/api/v1/saves/booking", `{}`, http.StatusNotFound},
		{"empty body", http.MethodPost, "/api/v1/saves/status", "", http.StatusBadRequest},
		{"bad options", http.MethodPost, "/api/v1/saves/status?maxRetries=0", `{"status":"Busy"}`, http.StatusBadRequest},
		{"invalid payload", http.MethodPost, "/api/v1/saves/status", `{"status":"Sleeping"}`, http.StatusUnprocessableEntity},
		{"connectivity without field", http.MethodPut, "/api/v1/connectivity", `{}`, http.StatusBadRequest},
		{"sign in without user", http.MethodPut, "/api/v1/session", `{"userId":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
		})
	}
	assert.Zero(t, s.manager.Len())
}

func TestRouter_StreamPushesSnapshots(t *testing.T) {
	s := newTestServer(t)
	s.sw.SetOnline(false)

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/v1/saves/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() savesStreamHandler.Envelope {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env savesStreamHandler.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		return env
	}

	first := read()
	assert.Equal(t, savesStreamHandler.EventQueueChanged, first.Type)
	assert.Equal(t, domain.QueueSnapshot{}, first.Data)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/saves/settings", `{"language":"en"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, domain.QueueSnapshot{Pending: 1}, read().Data)
}

func TestRouter_VisibleSignal(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/connectivity/visible", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_StreamBehindMetricsMiddleware(t *testing.T) {
	m := metrics.NewWithRegisterer("test", prometheus.NewRegistry())
	s := newTestServerWithMetrics(t, m)

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/v1/saves/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env savesStreamHandler.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, savesStreamHandler.EventQueueChanged, env.Type)
	require.NoError(t, conn.Close())

	resp, _ := s.do(t, http.MethodPost, "/api/v1/connectivity/visible", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/connectivity/visible", "204"))
	assert.Equal(t, float64(1), got)
}
