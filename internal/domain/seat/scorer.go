package seat

import (
	"fmt"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
)

// Scorer は座席の位置から望ましさを計算する。値が小さいほど良い席
type Scorer interface {
	Score(k Key) (int, error)
}

// BasicScorer はレベルID順・列優先で座席に通し番号を振るスコアラー
type BasicScorer struct {
	venue *venue.Configuration
}

// NewBasicScorer は新しいBasicScorerを作成する
func NewBasicScorer(v *venue.Configuration) *BasicScorer {
	return &BasicScorer{venue: v}
}

// Score は levelOffset + (row-1)*seatsPerRow + number を返す
func (s *BasicScorer) Score(k Key) (int, error) {
	l, ok := s.venue.Level(k.LevelID)
	if !ok {
		return 0, fmt.Errorf("座席 %s: %w", k, venue.ErrLevelNotFound)
	}
	return s.venue.SeatsBefore(k.LevelID) + (k.Row-1)*l.SeatsPerRow + k.Number, nil
}
