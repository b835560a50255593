package seathold

import (
	"time"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
)

// SeatHold は座席の仮押さえを表す。ConfirmationCode を持つものは予約確定済み
type SeatHold struct {
	ID               int64
	Customer         string
	Seats            []seat.Seat
	CreatedAt        time.Time
	ConfirmationCode string
}

// NewSeatHold は新しい仮押さえを作成する。IDは保存時に採番される
func NewSeatHold(customer string, seats []seat.Seat, createdAt time.Time) *SeatHold {
	held := make([]seat.Seat, len(seats))
	copy(held, seats)
	return &SeatHold{
		Customer:  customer,
		Seats:     held,
		CreatedAt: createdAt,
	}
}

// IsReservation は予約確定済みかを返す
func (h *SeatHold) IsReservation() bool {
	return h.ConfirmationCode != ""
}

// IsPending は仮押さえ中かを返す
func (h *SeatHold) IsPending() bool {
	return !h.IsReservation()
}

// IsExpired は仮押さえが期限切れかを返す。予約確定済みは期限切れにならない
func (h *SeatHold) IsExpired(now time.Time, holdLimit time.Duration) bool {
	if h.IsReservation() {
		return false
	}
	return h.CreatedAt.Add(holdLimit).Before(now)
}

// ExpiresAt は仮押さえの有効期限を返す
func (h *SeatHold) ExpiresAt(holdLimit time.Duration) time.Time {
	return h.CreatedAt.Add(holdLimit)
}

// Confirm は確認コード付きの新しい仮押さえを返す。元の値は変更しない
func (h *SeatHold) Confirm(code string, seats []seat.Seat) (*SeatHold, error) {
	if code == "" {
		return nil, ErrConfirmationCodeRequired
	}
	confirmed := h.Clone()
	confirmed.ConfirmationCode = code
	if seats != nil {
		confirmed.Seats = make([]seat.Seat, len(seats))
		copy(confirmed.Seats, seats)
	}
	return confirmed, nil
}

// SeatKeys は仮押さえ中の座席Key一覧を返す
func (h *SeatHold) SeatKeys() []seat.Key {
	keys := make([]seat.Key, len(h.Seats))
	for i, s := range h.Seats {
		keys[i] = s.Key
	}
	return keys
}

// Clone はディープコピーを返す
func (h *SeatHold) Clone() *SeatHold {
	c := *h
	c.Seats = make([]seat.Seat, len(h.Seats))
	copy(c.Seats, h.Seats)
	return &c
}

// Validate は仮押さえの検証を行う
func (h *SeatHold) Validate() error {
	if h.ID < 0 {
		return ErrInvalidID
	}
	if h.Customer == "" {
		return ErrCustomerRequired
	}
	if len(h.Seats) == 0 {
		return ErrSeatsRequired
	}
	if h.CreatedAt.IsZero() {
		return ErrCreatedAtRequired
	}
	return nil
}
