package seathold

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
)

// SeatHold ドメインのエラー定義
var (
	ErrSeatHoldNotFound         = errors.New("仮押さえが見つかりません")
	ErrInvalidID                = fmt.Errorf("%w: 仮押さえIDは1以上である必要があります", domain.ErrInvalidArgument)
	ErrCustomerRequired         = fmt.Errorf("%w: 顧客は必須です", domain.ErrInvalidArgument)
	ErrSeatsRequired            = fmt.Errorf("%w: 座席は必須です", domain.ErrInvalidArgument)
	ErrCreatedAtRequired        = fmt.Errorf("%w: 作成日時は必須です", domain.ErrInvalidArgument)
	ErrConfirmationCodeRequired = fmt.Errorf("%w: 確認コードは必須です", domain.ErrInvalidArgument)
)
