package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/clock"
)

// SeatHoldRepository はメモリ上の仮押さえ台帳
type SeatHoldRepository struct {
	mu     sync.RWMutex
	holds  map[int64]*seathold.SeatHold
	nextID atomic.Int64
	clock  clock.Clock
}

// NewSeatHoldRepository は新しい仮押さえ台帳を作成する
func NewSeatHoldRepository(clk clock.Clock) *SeatHoldRepository {
	if clk == nil {
		clk = clock.Real{}
	}
	return &SeatHoldRepository{
		holds: make(map[int64]*seathold.SeatHold),
		clock: clk,
	}
}

// Save は仮押さえを保存する。IDが0の場合は1から始まる連番を採番する
func (r *SeatHoldRepository) Save(ctx context.Context, hold *seathold.SeatHold) (*seathold.SeatHold, error) {
	if err := hold.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := hold.Clone()
	if stored.ID == 0 {
		stored.ID = r.nextID.Add(1)
	} else if stored.ID > r.nextID.Load() {
		// 外部から指定されたIDを採番済みとして扱う
		r.nextID.Store(stored.ID)
	}
	r.holds[stored.ID] = stored
	return stored.Clone(), nil
}

// FindByID はIDから仮押さえを取得する
func (r *SeatHoldRepository) FindByID(ctx context.Context, id int64) (*seathold.SeatHold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.holds[id]
	if !ok {
		return nil, seathold.ErrSeatHoldNotFound
	}
	return h.Clone(), nil
}

// FindAllExpired は作成日時 + holdLimit が現在時刻より前の仮押さえを取得する
func (r *SeatHoldRepository) FindAllExpired(ctx context.Context, holdLimit time.Duration) ([]*seathold.SeatHold, error) {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []*seathold.SeatHold
	for _, h := range r.holds {
		if h.IsExpired(now, holdLimit) {
			expired = append(expired, h.Clone())
		}
	}
	sortByID(expired)
	return expired, nil
}

// List は全ての仮押さえをID順に取得する
func (r *SeatHoldRepository) List(ctx context.Context) ([]*seathold.SeatHold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*seathold.SeatHold, 0, len(r.holds))
	for _, h := range r.holds {
		out = append(out, h.Clone())
	}
	sortByID(out)
	return out, nil
}

// Delete は仮押さえを削除する
func (r *SeatHoldRepository) Delete(ctx context.Context, hold *seathold.SeatHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holds, hold.ID)
	return nil
}

func sortByID(holds []*seathold.SeatHold) {
	sort.Slice(holds, func(i, j int) bool { return holds[i].ID < holds[j].ID })
}
