package handler

import (
	"context"

	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
)

// SeatServiceInterface は座席照会のインターフェース
type SeatServiceInterface interface {
	CountAvailable(ctx context.Context, levelID *int) (int, error)
	ListSeats(ctx context.Context, q seat.Query) ([]seat.Seat, error)
}

// HoldServiceInterface は仮押さえ・予約確定のインターフェース
type HoldServiceInterface interface {
	FindAndHold(ctx context.Context, input application.FindAndHoldInput) (*seathold.SeatHold, error)
	Reserve(ctx context.Context, holdID int64, customer string) (string, error)
	GetSeatHold(ctx context.Context, holdID int64) (*seathold.SeatHold, error)
}
