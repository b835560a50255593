package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/venue-ticket-service/internal/pkg/logger"
)

// HoldSweeper は期限切れの仮押さえを解放するインターフェース
type HoldSweeper interface {
	SweepExpiredHolds(ctx context.Context) (int, error)
}

// ExpiredHoldSweeper は期限切れの仮押さえを定期的に解放するワーカー。
// 各操作は実行前に解放を行うため、このワーカーは空席数を早めに回復させるためだけに動く
type ExpiredHoldSweeper struct {
	sweeper  HoldSweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewExpiredHoldSweeper は新しいワーカーを作成
func NewExpiredHoldSweeper(s HoldSweeper, interval time.Duration) *ExpiredHoldSweeper {
	return &ExpiredHoldSweeper{
		sweeper:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はワーカーを開始。Stop またはコンテキストのキャンセルまでブロックする
func (w *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("期限切れ仮押さえの解放ワーカー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ仮押さえの解放ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ仮押さえの解放ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はワーカーを停止し、終了を待つ。複数回呼んでもよい
func (w *ExpiredHoldSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// sweep は期限切れの仮押さえを解放
func (w *ExpiredHoldSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := w.sweeper.SweepExpiredHolds(ctx)
	if err != nil {
		log.Error("期限切れ仮押さえの解放失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ仮押さえを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れ仮押さえなし")
	}
}
