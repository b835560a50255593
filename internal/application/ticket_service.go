package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
	redisinfra "github.com/sanosuguru/venue-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/clock"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/logger"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
)

// SeatCountCache は空席数のキャッシュ。未登録の場合は redis.ErrCacheMiss を返す
type SeatCountCache interface {
	GetAvailableCount(ctx context.Context, scope string) (int, error)
	SetAvailableCount(ctx context.Context, scope string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// TicketService は座席の検索・仮押さえ・予約確定を行う。
// 全ての操作は期限切れ仮押さえの解放を先に行い、1つのロックの下で直列に実行される
type TicketService struct {
	mu sync.Mutex

	venue     *venue.Configuration
	inventory seat.Repository
	holds     seathold.Repository

	clock    clock.Clock
	emails   EmailValidator
	codes    ConfirmationCodeGenerator
	cache    SeatCountCache
	cacheTTL time.Duration
	// cacheStale の間はキャッシュを読まない。無効化に成功すると解除される
	cacheStale bool
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// Option はTicketServiceの任意設定
type Option func(*TicketService)

// WithClock は現在時刻の取得元を差し替える
func WithClock(c clock.Clock) Option {
	return func(s *TicketService) { s.clock = c }
}

// WithEmailValidator はメールアドレスの検証方法を差し替える
func WithEmailValidator(v EmailValidator) Option {
	return func(s *TicketService) { s.emails = v }
}

// WithConfirmationCodeGenerator は確認コードの生成方法を差し替える
func WithConfirmationCodeGenerator(g ConfirmationCodeGenerator) Option {
	return func(s *TicketService) { s.codes = g }
}

// WithSeatCache は空席数キャッシュを設定する
func WithSeatCache(c SeatCountCache, ttl time.Duration) Option {
	return func(s *TicketService) {
		s.cache = c
		s.cacheTTL = ttl
		// 以前の値が残っている可能性があるため、最初の読み取り前に無効化する
		s.cacheStale = true
	}
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TicketService) { s.metrics = m }
}

// WithLogger はロガーを差し替える
func WithLogger(l *zap.Logger) Option {
	return func(s *TicketService) { s.log = l }
}

// NewTicketService は新しいTicketServiceを作成する
func NewTicketService(v *venue.Configuration, inventory seat.Repository, holds seathold.Repository, opts ...Option) *TicketService {
	s := &TicketService{
		venue:     v,
		inventory: inventory,
		holds:     holds,
		clock:     clock.Real{},
		emails:    NewEmailValidator(),
		codes:     NewAlphabeticCodeGenerator(0),
		cacheTTL:  time.Minute,
		log:       logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Venue は会場設定を返す
func (s *TicketService) Venue() *venue.Configuration {
	return s.venue
}

// FindAndHoldInput は仮押さえの入力
type FindAndHoldInput struct {
	NumSeats int
	MinLevel *int
	MaxLevel *int
	Customer string
}

// execute は検証 → ロック → 期限切れ解放 → 操作 の順に実行する。検証エラー時は状態に触れない
func execute[T any](ctx context.Context, s *TicketService, validate func() error, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if validate != nil {
		if err := validate(); err != nil {
			return zero, err
		}
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sweep(ctx); err != nil {
		return zero, err
	}
	return op(ctx)
}

// CountAvailable は空席数を返す。levelID が nil の場合は会場全体
func (s *TicketService) CountAvailable(ctx context.Context, levelID *int) (int, error) {
	validate := func() error {
		if levelID != nil && !s.venue.HasLevel(*levelID) {
			return fmt.Errorf("%w: レベル %d", ErrInvalidLevel, *levelID)
		}
		return nil
	}
	return execute(ctx, s, validate, func(ctx context.Context) (int, error) {
		q := seat.Query{Status: seat.StatusAvailable}
		scope, label := redisinfra.ScopeAll, "all"
		if levelID != nil {
			q.LevelID = *levelID
			scope, label = redisinfra.LevelScope(*levelID), strconv.Itoa(*levelID)
		}

		if n, ok := s.cachedCount(ctx, scope); ok {
			return n, nil
		}

		n, err := s.inventory.Count(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("空席数の取得に失敗: %w", err)
		}
		s.storeCount(ctx, scope, n)
		if s.metrics != nil {
			s.metrics.AvailableSeats.WithLabelValues(label).Set(float64(n))
		}
		return n, nil
	})
}

// FindAndHold は条件に合う最良の空席を指定数だけ仮押さえする。
// 要求数に満たない場合は在庫を変更せずに NoAvailableSeatsError を返す
func (s *TicketService) FindAndHold(ctx context.Context, input FindAndHoldInput) (*seathold.SeatHold, error) {
	validate := func() error {
		if input.NumSeats <= 0 {
			return ErrInvalidNumSeats
		}
		if input.MinLevel != nil && !s.venue.HasLevel(*input.MinLevel) {
			return fmt.Errorf("%w: 最小レベル %d", ErrInvalidLevel, *input.MinLevel)
		}
		if input.MaxLevel != nil && !s.venue.HasLevel(*input.MaxLevel) {
			return fmt.Errorf("%w: 最大レベル %d", ErrInvalidLevel, *input.MaxLevel)
		}
		if input.MinLevel != nil && input.MaxLevel != nil && *input.MinLevel >= *input.MaxLevel {
			return ErrInvalidRange
		}
		// 最大レベルだけが既定の最小レベルと一致する場合も範囲として不正
		if input.MinLevel == nil && input.MaxLevel != nil && *input.MaxLevel == s.venue.MinLevelID() {
			return seat.ErrInvalidLevelRange
		}
		if !s.emails.IsValid(input.Customer) {
			return ErrInvalidEmail
		}
		return nil
	}

	hold, err := execute(ctx, s, validate, func(ctx context.Context) (*seathold.SeatHold, error) {
		return s.findAndHold(ctx, input)
	})
	s.recordHold(err)
	return hold, err
}

func (s *TicketService) findAndHold(ctx context.Context, input FindAndHoldInput) (*seathold.SeatHold, error) {
	minLevel := s.venue.MinLevelID()
	if input.MinLevel != nil {
		minLevel = *input.MinLevel
	}
	// 最大レベルの指定がなければ最小レベルのみを検索する
	q := seat.Query{LevelID: minLevel}
	if input.MaxLevel != nil && *input.MaxLevel >= minLevel {
		q = seat.Query{Range: &seat.LevelRange{Min: minLevel, Max: *input.MaxLevel}}
	}

	best, err := s.inventory.FindBest(ctx, q)
	if err != nil {
		return nil, err
	}
	chosen := make([]seat.Seat, 0, input.NumSeats)
	for st := range best {
		chosen = append(chosen, st)
		if len(chosen) == input.NumSeats {
			break
		}
	}
	if len(chosen) < input.NumSeats {
		return nil, &NoAvailableSeatsError{
			Requested: input.NumSeats,
			Customer:  input.Customer,
			MinLevel:  input.MinLevel,
			MaxLevel:  input.MaxLevel,
			Available: len(chosen),
		}
	}

	for i := range chosen {
		if err := chosen[i].Hold(); err != nil {
			return nil, fmt.Errorf("座席 %s: %w", chosen[i].Key, err)
		}
	}

	hold, err := s.holds.Save(ctx, seathold.NewSeatHold(input.Customer, chosen, s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("仮押さえの保存に失敗: %w", err)
	}
	if err := s.inventory.Save(ctx, chosen...); err != nil {
		if delErr := s.holds.Delete(ctx, hold); delErr != nil {
			s.log.Error("仮押さえの取り消しに失敗", logger.HoldID(hold.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("座席の保存に失敗: %w", err)
	}

	s.invalidateCache(ctx)
	s.refreshHoldGauge(ctx)
	s.log.Info("座席を仮押さえしました",
		logger.HoldID(hold.ID),
		logger.Customer(hold.Customer),
		logger.Seats(hold.SeatKeys()),
	)
	return hold, nil
}

// Reserve は仮押さえを予約確定し、確認コードを返す。
// 仮押さえの顧客と customer の一致は確認しない
func (s *TicketService) Reserve(ctx context.Context, holdID int64, customer string) (string, error) {
	validate := func() error {
		if holdID <= 0 {
			return ErrInvalidHoldID
		}
		if !s.emails.IsValid(customer) {
			return ErrInvalidEmail
		}
		return nil
	}

	code, err := execute(ctx, s, validate, func(ctx context.Context) (string, error) {
		return s.reserve(ctx, holdID, customer)
	})
	s.recordReservation(err)
	return code, err
}

func (s *TicketService) reserve(ctx context.Context, holdID int64, customer string) (string, error) {
	hold, err := s.holds.FindByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, seathold.ErrSeatHoldNotFound) {
			return "", &SeatHoldNotFoundError{ID: holdID, Customer: customer}
		}
		return "", fmt.Errorf("仮押さえの取得に失敗: %w", err)
	}

	code, err := s.codes.Generate()
	if err != nil {
		return "", err
	}

	seats := make([]seat.Seat, len(hold.Seats))
	copy(seats, hold.Seats)
	for i := range seats {
		if err := seats[i].Reserve(); err != nil {
			return "", fmt.Errorf("座席 %s: %w", seats[i].Key, err)
		}
	}
	if err := s.inventory.Save(ctx, seats...); err != nil {
		return "", fmt.Errorf("座席の保存に失敗: %w", err)
	}

	confirmed, err := hold.Confirm(code, seats)
	if err != nil {
		return "", err
	}
	if _, err := s.holds.Save(ctx, confirmed); err != nil {
		return "", fmt.Errorf("予約の保存に失敗: %w", err)
	}

	s.invalidateCache(ctx)
	s.refreshHoldGauge(ctx)
	s.log.Info("予約を確定しました",
		logger.HoldID(holdID),
		logger.Customer(confirmed.Customer),
		logger.Seats(confirmed.SeatKeys()),
	)
	return code, nil
}

// GetSeatHold は仮押さえ（予約確定済みを含む）を取得する
func (s *TicketService) GetSeatHold(ctx context.Context, holdID int64) (*seathold.SeatHold, error) {
	validate := func() error {
		if holdID <= 0 {
			return ErrInvalidHoldID
		}
		return nil
	}
	return execute(ctx, s, validate, func(ctx context.Context) (*seathold.SeatHold, error) {
		hold, err := s.holds.FindByID(ctx, holdID)
		if errors.Is(err, seathold.ErrSeatHoldNotFound) {
			return nil, &SeatHoldNotFoundError{ID: holdID}
		}
		return hold, err
	})
}

// ListSeats は検索条件に一致する座席一覧を返す
func (s *TicketService) ListSeats(ctx context.Context, q seat.Query) ([]seat.Seat, error) {
	return execute(ctx, s, q.Validate, func(ctx context.Context) ([]seat.Seat, error) {
		return s.inventory.FindAll(ctx, q)
	})
}

// SweepExpiredHolds は期限切れの仮押さえを解放し、解放した件数を返す
func (s *TicketService) SweepExpiredHolds(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(ctx)
}

// sweep は呼び出し側で s.mu を保持していること
func (s *TicketService) sweep(ctx context.Context) (int, error) {
	expired, err := s.holds.FindAllExpired(ctx, s.venue.HoldLimit())
	if err != nil {
		return 0, fmt.Errorf("期限切れ仮押さえの取得に失敗: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var (
		released []seat.Seat
		deleted  []*seathold.SeatHold
	)
	for _, h := range expired {
		if err := s.holds.Delete(ctx, h); err != nil {
			s.restoreHolds(ctx, deleted)
			return 0, fmt.Errorf("仮押さえ %d の削除に失敗: %w", h.ID, err)
		}
		deleted = append(deleted, h)
		for _, st := range h.Seats {
			st.Release()
			released = append(released, st)
		}
	}
	if err := s.inventory.Save(ctx, released...); err != nil {
		// 座席は仮押さえのまま残るため、台帳も元に戻す
		s.restoreHolds(ctx, deleted)
		return 0, fmt.Errorf("座席の解放に失敗: %w", err)
	}
	for _, h := range expired {
		s.log.Debug("期限切れの仮押さえを解放しました", logger.HoldID(h.ID), logger.Customer(h.Customer))
	}

	s.invalidateCache(ctx)
	if s.metrics != nil {
		s.metrics.ExpiredHoldsTotal.Add(float64(len(expired)))
	}
	s.refreshHoldGauge(ctx)
	s.log.Info("期限切れの仮押さえを解放しました",
		zap.Int("holds", len(expired)),
		zap.Int("seats", len(released)),
	)
	return len(expired), nil
}

// restoreHolds は削除済みの仮押さえを同じIDで台帳に戻す
func (s *TicketService) restoreHolds(ctx context.Context, holds []*seathold.SeatHold) {
	for _, h := range holds {
		if _, err := s.holds.Save(ctx, h); err != nil {
			s.log.Error("仮押さえの復元に失敗", logger.HoldID(h.ID), zap.Error(err))
		}
	}
}

func (s *TicketService) cachedCount(ctx context.Context, scope string) (int, bool) {
	if s.cache == nil {
		return 0, false
	}
	if s.cacheStale {
		s.invalidateCache(ctx)
		if s.cacheStale {
			return 0, false
		}
	}
	n, err := s.cache.GetAvailableCount(ctx, scope)
	if err != nil {
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			s.log.Warn("空席数キャッシュの取得に失敗", zap.String("scope", scope), zap.Error(err))
		}
		return 0, false
	}
	return n, true
}

func (s *TicketService) storeCount(ctx context.Context, scope string, n int) {
	if s.cache == nil || s.cacheStale {
		return
	}
	if err := s.cache.SetAvailableCount(ctx, scope, n, s.cacheTTL); err != nil {
		s.log.Warn("空席数キャッシュの保存に失敗", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *TicketService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.cacheStale = true
		s.log.Warn("空席数キャッシュの無効化に失敗。無効化できるまで在庫から数える", zap.Error(err))
		return
	}
	s.cacheStale = false
}

func (s *TicketService) refreshHoldGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	all, err := s.holds.List(ctx)
	if err != nil {
		s.log.Warn("仮押さえ一覧の取得に失敗", zap.Error(err))
		return
	}
	var pending, reserved int
	for _, h := range all {
		if h.IsReservation() {
			reserved++
		} else {
			pending++
		}
	}
	s.metrics.ActiveHolds.WithLabelValues("pending").Set(float64(pending))
	s.metrics.ActiveHolds.WithLabelValues("reserved").Set(float64(reserved))
}

func (s *TicketService) recordHold(err error) {
	if s.metrics != nil {
		s.metrics.SeatHoldsTotal.WithLabelValues(outcome(err, seat.ErrNoAvailableSeats, "no_seats")).Inc()
	}
}

func (s *TicketService) recordReservation(err error) {
	if s.metrics != nil {
		s.metrics.ReservationsTotal.WithLabelValues(outcome(err, seathold.ErrSeatHoldNotFound, "not_found")).Inc()
	}
}

// outcome はメトリクスのstatusラベルを決める
func outcome(err, expected error, label string) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, expected):
		return label
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
