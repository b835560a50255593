// Package server はHTTPサーバー（Echo）を組み立てる
package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/venue-ticket-service/internal/api"
	"github.com/sanosuguru/venue-ticket-service/internal/api/handler"
	"github.com/sanosuguru/venue-ticket-service/internal/api/middleware"
	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
)

const metricsPath = "/metrics"

// Options はサーバーの任意設定
type Options struct {
	// Metrics が nil の場合はHTTPメトリクスを記録しない
	Metrics *metrics.Metrics
	// Gatherer が nil の場合は prometheus.DefaultGatherer を公開する
	Gatherer       prometheus.Gatherer
	MetricsAuth    middleware.MetricsAuth
	RateLimitRPS   float64
	RateLimitBurst int
	HealthChecks   []handler.HealthCheck
}

// New はルーティングとミドルウェアを設定したEchoを返す
func New(svc *application.TicketService, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)
	if opts.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Metrics, metricsPath))
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET(metricsPath,
		echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(opts.MetricsAuth),
	)

	health := handler.NewHealthHandler(opts.HealthChecks...)
	e.GET("/health", health.Check)

	v1 := e.Group("/api/v1", middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	handler.Register(v1,
		health,
		handler.NewSeatHandler(svc, svc.Venue()),
		handler.NewHoldHandler(svc, svc.Venue().HoldLimit()),
	)
	return e
}
