package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/venue-ticket-service/internal/api/handler"
	"github.com/sanosuguru/venue-ticket-service/internal/api/middleware"
	"github.com/sanosuguru/venue-ticket-service/internal/api/server"
	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/config"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/infrastructure/memory"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/clock"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
)

var e2eStart = time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)

// TestServer はE2Eテスト用のサーバー。時刻は Clock で進める
type TestServer struct {
	Echo    *echo.Echo
	Clock   *clock.Fake
	Service *application.TicketService
	Holds   *memory.SeatHoldRepository
}

type serverOption func(*server.Options, *[]application.Option)

func withMetricsAuth(user, password string) serverOption {
	return func(o *server.Options, _ *[]application.Option) {
		o.MetricsAuth = middleware.MetricsAuth{User: user, Password: password}
	}
}

func withServiceOption(opt application.Option) serverOption {
	return func(_ *server.Options, opts *[]application.Option) {
		*opts = append(*opts, opt)
	}
}

func withHealthCheck(c handler.HealthCheck) serverOption {
	return func(o *server.Options, _ *[]application.Option) {
		o.HealthChecks = append(o.HealthChecks, c)
	}
}

// NewTestServer は組み込みの会場（3レベル120席、仮押さえ60秒）でサーバーを作成する
func NewTestServer(t *testing.T, opts ...serverOption) *TestServer {
	t.Helper()

	v, err := config.DefaultVenue().Build()
	require.NoError(t, err)

	clk := clock.NewFake(e2eStart)
	inventory, err := memory.NewSeatRepository(v, seat.NewBasicScorer(v))
	require.NoError(t, err)
	holds := memory.NewSeatHoldRepository(clk)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	serverOpts := server.Options{Metrics: m, Gatherer: reg}
	svcOpts := []application.Option{application.WithClock(clk), application.WithMetrics(m)}
	for _, opt := range opts {
		opt(&serverOpts, &svcOpts)
	}

	svc := application.NewTicketService(v, inventory, holds, svcOpts...)
	return &TestServer{
		Echo:    server.New(svc, serverOpts),
		Clock:   clk,
		Service: svc,
		Holds:   holds,
	}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *TestServer) availableCount(t *testing.T, path string) int {
	t.Helper()
	rec := s.Request("GET", path, nil, nil)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	return decode[handler.CountResponse](t, rec).Count
}
