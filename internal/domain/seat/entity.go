package seat

import "fmt"

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusHeld      Status = "held"
	StatusReserved  Status = "reserved"
)

// ParseStatus は文字列から座席の状態を取得する
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAvailable, StatusHeld, StatusReserved:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Key は座席の識別子（レベル・列・座席番号）
type Key struct {
	LevelID int
	Row     int
	Number  int
}

// Less はレベル・列・座席番号の順で比較する
func (k Key) Less(o Key) bool {
	if k.LevelID != o.LevelID {
		return k.LevelID < o.LevelID
	}
	if k.Row != o.Row {
		return k.Row < o.Row
	}
	return k.Number < o.Number
}

func (k Key) String() string {
	return fmt.Sprintf("L%d-R%d-S%d", k.LevelID, k.Row, k.Number)
}

// Seat は座席エンティティを表す。同一性は Key のみで判定し、Score と Status は可変属性
type Seat struct {
	Key
	Score  int
	Status Status
}

// NewSeat は新しい座席を作成する
func NewSeat(levelID, row, number int) Seat {
	return Seat{
		Key:    Key{LevelID: levelID, Row: row, Number: number},
		Status: StatusAvailable,
	}
}

// IsAvailable は座席が仮押さえ可能かを返す
func (s Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// Hold は座席を仮押さえ状態にする
func (s *Seat) Hold() error {
	if s.Status != StatusAvailable {
		return ErrSeatNotAvailable
	}
	s.Status = StatusHeld
	return nil
}

// Reserve は座席を予約確定状態にする。確定済みの座席に対しては何もしない
func (s *Seat) Reserve() error {
	if s.Status == StatusAvailable {
		return ErrSeatNotHeld
	}
	s.Status = StatusReserved
	return nil
}

// Release は座席を解放する
func (s *Seat) Release() {
	s.Status = StatusAvailable
}

// Validate は座席の検証を行う
func (s Seat) Validate() error {
	if s.LevelID <= 0 || s.Row <= 0 || s.Number <= 0 {
		return ErrInvalidKey
	}
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return err
	}
	return nil
}
