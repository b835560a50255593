package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
)

// SeatRepository はメモリ上の座席在庫
type SeatRepository struct {
	mu    sync.RWMutex
	seats map[seat.Key]seat.Seat
	order []seat.Key // 初期化順（レベルID・列・座席番号順）
}

// NewSeatRepository は会場設定から全座席を生成し、スコアを付与した在庫を作成する
func NewSeatRepository(v *venue.Configuration, scorer seat.Scorer) (*SeatRepository, error) {
	r := &SeatRepository{
		seats: make(map[seat.Key]seat.Seat, v.TotalSeats()),
		order: make([]seat.Key, 0, v.TotalSeats()),
	}
	for _, l := range v.Levels() {
		for row := 1; row <= l.Rows; row++ {
			for num := 1; num <= l.SeatsPerRow; num++ {
				s := seat.NewSeat(l.ID, row, num)
				score, err := scorer.Score(s.Key)
				if err != nil {
					return nil, fmt.Errorf("スコア計算に失敗: %w", err)
				}
				s.Score = score
				r.seats[s.Key] = s
				r.order = append(r.order, s.Key)
			}
		}
	}
	return r, nil
}

// FindAll は検索条件に一致する座席一覧を取得する
func (r *SeatRepository) FindAll(ctx context.Context, q seat.Query) ([]seat.Seat, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(q), nil
}

// FindBest は空席をスコア昇順で返す。スナップショットは呼び出し時点で取得する
func (r *SeatRepository) FindBest(ctx context.Context, q seat.Query) (iter.Seq[seat.Seat], error) {
	q.Status = seat.StatusAvailable
	if err := q.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	snapshot := r.filter(q)
	r.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Score != snapshot[j].Score {
			return snapshot[i].Score < snapshot[j].Score
		}
		return snapshot[i].Key.Less(snapshot[j].Key)
	})
	return slices.Values(snapshot), nil
}

// Count は検索条件に一致する座席数を返す
func (r *SeatRepository) Count(ctx context.Context, q seat.Query) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, k := range r.order {
		if q.Match(r.seats[k]) {
			count++
		}
	}
	return count, nil
}

// Save は座席の状態を一括更新する。スコアは初期化時の値を維持する
func (r *SeatRepository) Save(ctx context.Context, seats ...seat.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bad []seat.Key
	for _, s := range seats {
		if _, ok := r.seats[s.Key]; !ok {
			bad = append(bad, s.Key)
		}
	}
	if len(bad) > 0 {
		return &seat.InconsistencyError{Seats: bad}
	}

	for _, s := range seats {
		stored := r.seats[s.Key]
		stored.Status = s.Status
		r.seats[s.Key] = stored
	}
	return nil
}

// filter は呼び出し側でロックを保持していること
func (r *SeatRepository) filter(q seat.Query) []seat.Seat {
	out := make([]seat.Seat, 0)
	for _, k := range r.order {
		if s := r.seats[k]; q.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
