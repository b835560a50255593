package venue

import (
	"fmt"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
)

// Venue ドメインのエラー定義
var (
	ErrLevelNotFound      = fmt.Errorf("%w: レベルは会場に存在しません", domain.ErrInvalidArgument)
	ErrInvalidLevelID     = fmt.Errorf("%w: レベルIDは1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidRows        = fmt.Errorf("%w: 列数は1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidSeatsPerRow = fmt.Errorf("%w: 1列あたりの座席数は1以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidPrice       = fmt.Errorf("%w: 価格は0以上である必要があります", domain.ErrInvalidArgument)
	ErrInvalidHoldLimit   = fmt.Errorf("%w: 仮押さえ期限は1秒以上である必要があります", domain.ErrInvalidArgument)
	ErrLevelsRequired     = fmt.Errorf("%w: レベルは1つ以上必要です", domain.ErrInvalidArgument)
	ErrDuplicateLevel     = fmt.Errorf("%w: レベルIDが重複しています", domain.ErrInvalidArgument)
)
