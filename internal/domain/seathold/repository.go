package seathold

import (
	"context"
	"time"
)

// Repository は仮押さえ台帳のインターフェース。戻り値はすべて独立したコピー
type Repository interface {
	// Save は仮押さえを保存する。IDが0なら採番して追加し、それ以外は同じIDの仮押さえを上書きする
	Save(ctx context.Context, hold *SeatHold) (*SeatHold, error)

	// FindByID はIDから仮押さえを取得する
	FindByID(ctx context.Context, id int64) (*SeatHold, error)

	// FindAllExpired は期限切れの仮押さえ（予約確定済みを除く）を取得する
	FindAllExpired(ctx context.Context, holdLimit time.Duration) ([]*SeatHold, error)

	// List は全ての仮押さえをID順に取得する
	List(ctx context.Context) ([]*SeatHold, error)

	// Delete は仮押さえを削除する。存在しなくてもエラーにしない
	Delete(ctx context.Context, hold *SeatHold) error
}
