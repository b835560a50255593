package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア。skip に一致するパスは記録しない
func PrometheusMiddleware(m *metrics.Metrics, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// ルートテンプレートで集計し、ラベルの爆発を防ぐ
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			if _, ok := skipped[path]; ok {
				return next(c)
			}

			start := time.Now()
			if err := next(c); err != nil {
				// ドメインエラーのステータスを記録するためエラーハンドラーを先に呼ぶ
				c.Error(err)
			}

			status := c.Response().Status
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}
