package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MetricsAuth はメトリクス認証の設定
type MetricsAuth struct {
	User     string
	Password string
}

// IsEnabled は認証が有効かどうかを返す
func (a MetricsAuth) IsEnabled() bool {
	return a.User != "" && a.Password != ""
}

// MetricsBasicAuth は /metrics エンドポイント用の Basic 認証ミドルウェア
// ユーザーとパスワードの両方が設定されている場合のみ認証を要求する
func MetricsBasicAuth(auth MetricsAuth) echo.MiddlewareFunc {
	if !auth.IsEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "metrics",
		Validator: func(username, password string, c echo.Context) (bool, error) {
			// タイミング攻撃を防ぐため ConstantTimeCompare を使用
			userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(auth.User)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(auth.Password)) == 1
			return userMatch && passMatch, nil
		},
	})
}
