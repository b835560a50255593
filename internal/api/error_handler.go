package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/domain"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー。ドメインエラーをステータスコードに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := toErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// JSONレスポンスを返す
	if err := c.JSON(resp.Code, resp); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) ErrorResponse {
	var (
		he           *echo.HTTPError
		noSeats      *application.NoAvailableSeatsError
		inconsistent *seat.InconsistencyError
	)

	switch {
	case errors.As(err, &he):
		message, ok := he.Message.(string)
		if !ok {
			message = http.StatusText(he.Code)
		}
		return ErrorResponse{Error: message, Code: he.Code}
	case errors.As(err, &noSeats):
		available := noSeats.Available
		return ErrorResponse{
			Error:     "空席が不足しています",
			Code:      http.StatusConflict,
			Details:   noSeats.Error(),
			Requested: noSeats.Requested,
			Available: &available,
		}
	case errors.Is(err, seathold.ErrSeatHoldNotFound):
		return ErrorResponse{Error: "仮押さえが見つかりません", Code: http.StatusNotFound, Details: err.Error()}
	case errors.Is(err, domain.ErrInvalidArgument):
		return ErrorResponse{Error: "不正なリクエスト", Code: http.StatusBadRequest, Details: err.Error()}
	case errors.As(err, &inconsistent):
		return ErrorResponse{
			Error:   "内部サーバーエラー",
			Code:    http.StatusInternalServerError,
			Details: fmt.Sprintf("在庫の不整合: %d席", len(inconsistent.Seats)),
		}
	default:
		return ErrorResponse{Error: "内部サーバーエラー", Code: http.StatusInternalServerError}
	}
}
