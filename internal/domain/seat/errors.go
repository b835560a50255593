package seat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotAvailable  = errors.New("座席は仮押さえできません")
	ErrSeatNotHeld       = errors.New("座席は仮押さえされていません")
	ErrNoAvailableSeats  = errors.New("空席が不足しています")
	ErrSeatNotInVenue    = errors.New("座席は会場に存在しません")
	ErrInvalidKey        = fmt.Errorf("%w: レベル・列・座席番号は1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidStatus     = fmt.Errorf("%w: 不正な座席ステータスです", domain.ErrInvalidArgument)
	ErrInvalidLevelRange = fmt.Errorf("%w: レベル範囲の最小値は最大値より小さい必要があります", domain.ErrInvalidArgument)
	ErrInvalidQuery      = fmt.Errorf("%w: レベルとレベル範囲は同時に指定できません", domain.ErrInvalidArgument)
)

// InconsistencyError は会場に存在しない座席を保存しようとしたことを表す。
// 呼び出し側のバグであり、利用者向けのエラーではない
type InconsistencyError struct {
	Seats []Key
}

func (e *InconsistencyError) Error() string {
	keys := make([]string, len(e.Seats))
	for i, k := range e.Seats {
		keys[i] = k.String()
	}
	return fmt.Sprintf("%d件の座席が会場に存在しません: %s", len(e.Seats), strings.Join(keys, ", "))
}

func (e *InconsistencyError) Unwrap() error {
	return ErrSeatNotInVenue
}
