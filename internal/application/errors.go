package application

import (
	"fmt"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
)

// アプリケーション層の入力検証エラー
var (
	ErrInvalidNumSeats = fmt.Errorf("%w: 座席数は1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidHoldID   = fmt.Errorf("%w: 仮押さえIDは1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidEmail    = fmt.Errorf("%w: メールアドレスが不正です", domain.ErrInvalidArgument)
	ErrInvalidLevel    = fmt.Errorf("%w: レベルは会場に存在しません", domain.ErrInvalidArgument)
	ErrInvalidRange    = fmt.Errorf("%w: 最小レベルは最大レベルより小さい必要があります", domain.ErrInvalidArgument)
)

// NoAvailableSeatsError は要求数の空席が見つからなかったことを表す。在庫は変更されない
type NoAvailableSeatsError struct {
	Requested int
	Customer  string
	MinLevel  *int
	MaxLevel  *int
	Available int
}

func (e *NoAvailableSeatsError) Error() string {
	return fmt.Sprintf("空席が不足しています: %d席を要求しましたが%d席しか見つかりませんでした（最小レベル=%s, 最大レベル=%s）",
		e.Requested, e.Available, formatLevel(e.MinLevel), formatLevel(e.MaxLevel))
}

func (e *NoAvailableSeatsError) Unwrap() error {
	return seat.ErrNoAvailableSeats
}

// SeatHoldNotFoundError は仮押さえが存在しない（または期限切れ）ことを表す
type SeatHoldNotFoundError struct {
	ID       int64
	Customer string
}

func (e *SeatHoldNotFoundError) Error() string {
	return fmt.Sprintf("仮押さえ %d が見つかりません", e.ID)
}

func (e *SeatHoldNotFoundError) Unwrap() error {
	return seathold.ErrSeatHoldNotFound
}

func formatLevel(l *int) string {
	if l == nil {
		return "指定なし"
	}
	return fmt.Sprint(*l)
}
