package venue

import (
	"fmt"
	"sort"
	"time"
)

// Level は会場のレベル（フロア・区画）を表す
type Level struct {
	ID          int
	Name        string
	Rows        int
	SeatsPerRow int
	Price       int
}

// NewLevel は新しいレベルを作成する
func NewLevel(id int, name string, rows, seatsPerRow, price int) Level {
	if name == "" {
		name = fmt.Sprintf("level%d", id)
	}
	return Level{
		ID:          id,
		Name:        name,
		Rows:        rows,
		SeatsPerRow: seatsPerRow,
		Price:       price,
	}
}

// TotalSeats はレベルの総座席数を返す
func (l Level) TotalSeats() int {
	return l.Rows * l.SeatsPerRow
}

// Validate はレベルの検証を行う
func (l Level) Validate() error {
	if l.ID <= 0 {
		return ErrInvalidLevelID
	}
	if l.Rows <= 0 {
		return ErrInvalidRows
	}
	if l.SeatsPerRow <= 0 {
		return ErrInvalidSeatsPerRow
	}
	if l.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Configuration は会場設定を表す。作成後は変更できない
type Configuration struct {
	holdLimitSeconds int
	levels           []Level // ID昇順
}

// NewConfiguration は会場設定を作成する
func NewConfiguration(holdLimitSeconds int, levels ...Level) (*Configuration, error) {
	if holdLimitSeconds <= 0 {
		return nil, ErrInvalidHoldLimit
	}
	if len(levels) == 0 {
		return nil, ErrLevelsRequired
	}

	seen := make(map[int]struct{}, len(levels))
	sorted := make([]Level, 0, len(levels))
	for _, l := range levels {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("レベル %d: %w", l.ID, err)
		}
		if _, ok := seen[l.ID]; ok {
			return nil, fmt.Errorf("レベル %d: %w", l.ID, ErrDuplicateLevel)
		}
		seen[l.ID] = struct{}{}
		sorted = append(sorted, l)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &Configuration{holdLimitSeconds: holdLimitSeconds, levels: sorted}, nil
}

// HoldLimitSeconds は仮押さえの有効期限（秒）を返す
func (c *Configuration) HoldLimitSeconds() int {
	return c.holdLimitSeconds
}

// HoldLimit は仮押さえの有効期限を返す
func (c *Configuration) HoldLimit() time.Duration {
	return time.Duration(c.holdLimitSeconds) * time.Second
}

// Levels はID昇順のレベル一覧のコピーを返す
func (c *Configuration) Levels() []Level {
	out := make([]Level, len(c.levels))
	copy(out, c.levels)
	return out
}

// Level はIDからレベルを取得する
func (c *Configuration) Level(id int) (Level, bool) {
	for _, l := range c.levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// HasLevel はレベルが会場に存在するかを返す
func (c *Configuration) HasLevel(id int) bool {
	_, ok := c.Level(id)
	return ok
}

// MinLevelID は最も小さいレベルIDを返す
func (c *Configuration) MinLevelID() int {
	return c.levels[0].ID
}

// MaxLevelID は最も大きいレベルIDを返す
func (c *Configuration) MaxLevelID() int {
	return c.levels[len(c.levels)-1].ID
}

// TotalSeats は会場全体の座席数を返す
func (c *Configuration) TotalSeats() int {
	total := 0
	for _, l := range c.levels {
		total += l.TotalSeats()
	}
	return total
}

// SeatsBefore は指定レベルより小さいIDを持つ全レベルの座席数合計を返す
func (c *Configuration) SeatsBefore(id int) int {
	total := 0
	for _, l := range c.levels {
		if l.ID < id {
			total += l.TotalSeats()
		}
	}
	return total
}
