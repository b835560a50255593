package seat

import (
	"context"
	"iter"
)

// LevelRange はレベルの閉区間 [Min, Max] を表す
type LevelRange struct {
	Min int
	Max int
}

// Validate はレベル範囲の検証を行う。Min == Max も範囲指定としては不正とする
func (r LevelRange) Validate() error {
	if r.Min >= r.Max {
		return ErrInvalidLevelRange
	}
	return nil
}

// Contains はレベルが範囲に含まれるかを返す
func (r LevelRange) Contains(levelID int) bool {
	return levelID >= r.Min && levelID <= r.Max
}

// Query は座席の検索条件。ゼロ値の項目は条件なしを表す
type Query struct {
	LevelID int
	Range   *LevelRange
	Status  Status
}

// Validate は検索条件の検証を行う
func (q Query) Validate() error {
	if q.LevelID != 0 && q.Range != nil {
		return ErrInvalidQuery
	}
	if q.Range != nil {
		if err := q.Range.Validate(); err != nil {
			return err
		}
	}
	if q.Status != "" {
		if _, err := ParseStatus(string(q.Status)); err != nil {
			return err
		}
	}
	return nil
}

// Match は座席が検索条件に一致するかを返す
func (q Query) Match(s Seat) bool {
	if q.LevelID != 0 && s.LevelID != q.LevelID {
		return false
	}
	if q.Range != nil && !q.Range.Contains(s.LevelID) {
		return false
	}
	if q.Status != "" && s.Status != q.Status {
		return false
	}
	return true
}

// Repository は座席在庫のインターフェース。読み取り結果はすべて独立したスナップショット
type Repository interface {
	// FindAll は検索条件に一致する座席一覧を取得する
	FindAll(ctx context.Context, q Query) ([]Seat, error)

	// FindBest は空席をスコア昇順（同点はKey順）で返す。Status は無視される
	FindBest(ctx context.Context, q Query) (iter.Seq[Seat], error)

	// Count は検索条件に一致する座席数を返す
	Count(ctx context.Context, q Query) (int, error)

	// Save は座席の状態を一括更新する。会場に存在しない座席が1つでもあれば何も更新しない
	Save(ctx context.Context, seats ...Seat) error
}
