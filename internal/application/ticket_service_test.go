package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/venue-ticket-service/internal/domain"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
	"github.com/sanosuguru/venue-ticket-service/internal/infrastructure/memory"
	redisinfra "github.com/sanosuguru/venue-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/clock"
	"github.com/sanosuguru/venue-ticket-service/internal/pkg/metrics"
)

const customer = "tanaka@example.com"

var testStart = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// sequenceCodes は連番の確認コードを返す
type sequenceCodes struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("CODE%03d", g.n), nil
}

type testEnv struct {
	service   *TicketService
	inventory *memory.SeatRepository
	holds     *memory.SeatHoldRepository
	clock     *clock.Fake
}

// setupTestEnv はメモリ上の在庫と台帳でTicketServiceを構築する
func setupTestEnv(t *testing.T, v *venue.Configuration, opts ...Option) *testEnv {
	t.Helper()

	clk := clock.NewFake(testStart)
	inventory, err := memory.NewSeatRepository(v, seat.NewBasicScorer(v))
	require.NoError(t, err)
	holds := memory.NewSeatHoldRepository(clk)

	opts = append([]Option{WithClock(clk), WithConfirmationCodeGenerator(&sequenceCodes{})}, opts...)
	return &testEnv{
		service:   NewTicketService(v, inventory, holds, opts...),
		inventory: inventory,
		holds:     holds,
		clock:     clk,
	}
}

// twoLevelVenue はL1 2×10、L2 4×20、期限1秒の会場
func twoLevelVenue(t *testing.T) *venue.Configuration {
	t.Helper()
	v, err := venue.NewConfiguration(1,
		venue.NewLevel(1, "", 2, 10, 0),
		venue.NewLevel(2, "", 4, 20, 0),
	)
	require.NoError(t, err)
	return v
}

// threeLevelVenue はL1 2×10、L2 4×20、L3 2×10、期限5秒の会場
func threeLevelVenue(t *testing.T) *venue.Configuration {
	t.Helper()
	v, err := venue.NewConfiguration(5,
		venue.NewLevel(1, "", 2, 10, 0),
		venue.NewLevel(2, "", 4, 20, 0),
		venue.NewLevel(3, "", 2, 10, 0),
	)
	require.NoError(t, err)
	return v
}

func scores(h *seathold.SeatHold) []int {
	out := make([]int, len(h.Seats))
	for i, s := range h.Seats {
		out[i] = s.Score
	}
	return out
}

func TestTicketService_CountAvailable(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	t.Run("会場全体", func(t *testing.T) {
		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})

	t.Run("レベル指定", func(t *testing.T) {
		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 20, n)

		n, err = env.service.CountAvailable(ctx, intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, 80, n)
	})

	t.Run("存在しないレベルは不正な引数", func(t *testing.T) {
		_, err := env.service.CountAvailable(ctx, intPtr(9))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.ErrorIs(t, err, ErrInvalidLevel)
	})

	t.Run("仮押さえと予約確定の座席は含まない", func(t *testing.T) {
		env := setupTestEnv(t, twoLevelVenue(t))
		h1, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 3, Customer: customer})
		require.NoError(t, err)
		_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 5, MinLevel: intPtr(2), Customer: customer})
		require.NoError(t, err)
		_, err = env.service.Reserve(ctx, h1.ID, customer)
		require.NoError(t, err)

		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100-3-5, n)
	})
}

func TestTicketService_HoldAndExpire(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	n, err := env.service.CountAvailable(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, MinLevel: intPtr(1), Customer: customer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), hold.ID)
	assert.Equal(t, customer, hold.Customer)
	assert.Equal(t, testStart, hold.CreatedAt)
	assert.Empty(t, hold.ConfirmationCode)
	require.Len(t, hold.Seats, 2)
	for _, s := range hold.Seats {
		assert.Equal(t, 1, s.LevelID)
		assert.Equal(t, seat.StatusHeld, s.Status)
	}

	n, err = env.service.CountAvailable(ctx, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 18, n)

	t.Run("期限ちょうどでは解放されない", func(t *testing.T) {
		env.clock.Advance(time.Second)
		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 18, n)
	})

	t.Run("期限を過ぎると解放される", func(t *testing.T) {
		env.clock.Advance(time.Second)
		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 20, n)

		_, err = env.holds.FindByID(ctx, hold.ID)
		assert.ErrorIs(t, err, seathold.ErrSeatHoldNotFound)
	})
}

func TestTicketService_FindAndHold_Exhausted(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	_, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 20, MinLevel: intPtr(1), Customer: customer})
	require.NoError(t, err)

	n, err := env.service.CountAvailable(ctx, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, MinLevel: intPtr(1), Customer: customer})
	require.Error(t, err)
	assert.ErrorIs(t, err, seat.ErrNoAvailableSeats)

	var noSeats *NoAvailableSeatsError
	require.True(t, errors.As(err, &noSeats))
	assert.Equal(t, 1, noSeats.Requested)
	assert.Equal(t, 0, noSeats.Available)
	assert.Equal(t, customer, noSeats.Customer)
	require.NotNil(t, noSeats.MinLevel)
	assert.Equal(t, 1, *noSeats.MinLevel)
	assert.Nil(t, noSeats.MaxLevel)
}

func TestTicketService_FindAndHold_NeverPartial(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	_, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 21, Customer: customer})
	var noSeats *NoAvailableSeatsError
	require.ErrorAs(t, err, &noSeats)
	assert.Equal(t, 20, noSeats.Available)

	n, err := env.service.CountAvailable(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, n, "在庫は変更されない")

	all, err := env.holds.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "仮押さえは作成されない")
}

func TestTicketService_FindAndHold_BestSeats(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		input  FindAndHoldInput
		scores []int
	}{
		{
			name:   "条件なしは最小レベルの先頭から",
			input:  FindAndHoldInput{NumSeats: 2},
			scores: []int{1, 2},
		},
		{
			name:   "最小レベル指定",
			input:  FindAndHoldInput{NumSeats: 4, MinLevel: intPtr(2)},
			scores: []int{21, 22, 23, 24},
		},
		{
			name:   "最大レベルのみ指定は最小レベルからの範囲検索",
			input:  FindAndHoldInput{NumSeats: 1, MaxLevel: intPtr(2)},
			scores: []int{1},
		},
		{
			name:   "範囲内で列をまたぐ",
			input:  FindAndHoldInput{NumSeats: 12, MinLevel: intPtr(1), MaxLevel: intPtr(3)},
			scores: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, threeLevelVenue(t))
			tt.input.Customer = customer

			hold, err := env.service.FindAndHold(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.scores, scores(hold))
		})
	}

	t.Run("範囲指定はレベルをまたいで全席を確保できる", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{
			NumSeats: 100, MinLevel: intPtr(2), MaxLevel: intPtr(3), Customer: customer,
		})
		require.NoError(t, err)
		require.Len(t, hold.Seats, 100)
		for i, s := range hold.Seats {
			assert.Equal(t, 21+i, s.Score)
			assert.GreaterOrEqual(t, s.LevelID, 2)
		}

		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 20, n)
	})

	t.Run("後続の仮押さえは次に良い座席を取る", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		first, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)
		second, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)

		assert.Equal(t, []int{1, 2}, scores(first))
		assert.Equal(t, []int{3, 4}, scores(second))
		assert.Greater(t, second.ID, first.ID)
	})
}

func TestTicketService_FindAndHold_Validation(t *testing.T) {
	env := setupTestEnv(t, threeLevelVenue(t))
	ctx := context.Background()

	tests := []struct {
		name        string
		input       FindAndHoldInput
		expectedErr error
	}{
		{name: "座席数が0", input: FindAndHoldInput{NumSeats: 0, Customer: customer}, expectedErr: ErrInvalidNumSeats},
		{name: "座席数が負", input: FindAndHoldInput{NumSeats: -1, Customer: customer}, expectedErr: ErrInvalidNumSeats},
		{name: "存在しない最小レベル", input: FindAndHoldInput{NumSeats: 1, MinLevel: intPtr(4), Customer: customer}, expectedErr: ErrInvalidLevel},
		{name: "存在しない最大レベル", input: FindAndHoldInput{NumSeats: 1, MaxLevel: intPtr(0), Customer: customer}, expectedErr: ErrInvalidLevel},
		{name: "最小と最大が同じ", input: FindAndHoldInput{NumSeats: 1, MinLevel: intPtr(2), MaxLevel: intPtr(2), Customer: customer}, expectedErr: ErrInvalidRange},
		{name: "最小が最大より大きい", input: FindAndHoldInput{NumSeats: 1, MinLevel: intPtr(3), MaxLevel: intPtr(1), Customer: customer}, expectedErr: ErrInvalidRange},
		{name: "メールアドレスが空", input: FindAndHoldInput{NumSeats: 1}, expectedErr: ErrInvalidEmail},
		{name: "メールアドレスが不正", input: FindAndHoldInput{NumSeats: 1, Customer: "not-an-email"}, expectedErr: ErrInvalidEmail},
		{name: "最大レベルのみで最小レベルと一致", input: FindAndHoldInput{NumSeats: 1, MaxLevel: intPtr(1), Customer: customer}, expectedErr: seat.ErrInvalidLevelRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hold, err := env.service.FindAndHold(ctx, tt.input)
			assert.Nil(t, hold)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	n, err := env.service.CountAvailable(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 120, n)
}

func TestTicketService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("予約確定で座席が確定し確認コードが保存される", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, MinLevel: intPtr(2), Customer: customer})
		require.NoError(t, err)

		code, err := env.service.Reserve(ctx, hold.ID, customer)
		require.NoError(t, err)
		assert.Equal(t, "CODE001", code)

		n, err := env.service.CountAvailable(ctx, intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, 78, n)

		reserved, err := env.service.ListSeats(ctx, seat.Query{Status: seat.StatusReserved})
		require.NoError(t, err)
		require.Len(t, reserved, 2)
		assert.ElementsMatch(t, hold.SeatKeys(), []seat.Key{reserved[0].Key, reserved[1].Key})

		stored, err := env.service.GetSeatHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, code, stored.ConfirmationCode)
		assert.Equal(t, hold.ID, stored.ID)
		assert.Equal(t, hold.Customer, stored.Customer)
		assert.Equal(t, hold.CreatedAt, stored.CreatedAt)
		assert.True(t, stored.IsReservation())
	})

	t.Run("予約確定済みは期限切れにならない", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 3, Customer: customer})
		require.NoError(t, err)
		_, err = env.service.Reserve(ctx, hold.ID, customer)
		require.NoError(t, err)

		env.clock.Advance(time.Hour)
		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 17, n)

		_, err = env.service.GetSeatHold(ctx, hold.ID)
		assert.NoError(t, err)
	})

	t.Run("再度の予約確定は新しい確認コードを発行する", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, Customer: customer})
		require.NoError(t, err)

		first, err := env.service.Reserve(ctx, hold.ID, customer)
		require.NoError(t, err)
		second, err := env.service.Reserve(ctx, hold.ID, customer)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		stored, err := env.service.GetSeatHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, second, stored.ConfirmationCode)
	})

	t.Run("別の顧客でも予約確定できる", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, Customer: customer})
		require.NoError(t, err)

		_, err = env.service.Reserve(ctx, hold.ID, "suzuki@example.com")
		require.NoError(t, err)

		stored, err := env.service.GetSeatHold(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, customer, stored.Customer)
	})

	t.Run("存在しない仮押さえ", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		_, err := env.service.Reserve(ctx, 42, customer)
		require.Error(t, err)
		assert.ErrorIs(t, err, seathold.ErrSeatHoldNotFound)

		var notFound *SeatHoldNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(42), notFound.ID)
		assert.Equal(t, customer, notFound.Customer)
	})

	t.Run("期限切れの仮押さえは見つからない", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)

		env.clock.Advance(6 * time.Second)
		_, err = env.service.Reserve(ctx, hold.ID, customer)
		assert.ErrorIs(t, err, seathold.ErrSeatHoldNotFound)

		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 120, n)
	})

	t.Run("入力検証", func(t *testing.T) {
		env := setupTestEnv(t, threeLevelVenue(t))

		_, err := env.service.Reserve(ctx, 0, customer)
		assert.ErrorIs(t, err, ErrInvalidHoldID)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = env.service.Reserve(ctx, 1, "bad")
		assert.ErrorIs(t, err, ErrInvalidEmail)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestTicketService_GetSeatHold(t *testing.T) {
	env := setupTestEnv(t, threeLevelVenue(t))
	ctx := context.Background()

	_, err := env.service.GetSeatHold(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidHoldID)

	_, err = env.service.GetSeatHold(ctx, 7)
	assert.ErrorIs(t, err, seathold.ErrSeatHoldNotFound)

	hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, Customer: customer})
	require.NoError(t, err)

	got, err := env.service.GetSeatHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, hold, got)
}

func TestTicketService_ListSeats(t *testing.T) {
	env := setupTestEnv(t, threeLevelVenue(t))
	ctx := context.Background()

	_, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
	require.NoError(t, err)

	held, err := env.service.ListSeats(ctx, seat.Query{Status: seat.StatusHeld})
	require.NoError(t, err)
	assert.Len(t, held, 2)

	l3, err := env.service.ListSeats(ctx, seat.Query{LevelID: 3})
	require.NoError(t, err)
	assert.Len(t, l3, 20)

	_, err = env.service.ListSeats(ctx, seat.Query{Range: &seat.LevelRange{Min: 2, Max: 2}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTicketService_SweepExpiredHolds(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)
	}

	n, err := env.service.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	env.clock.Advance(2 * time.Second)
	n, err = env.service.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	available, err := env.inventory.Count(ctx, seat.Query{Status: seat.StatusAvailable})
	require.NoError(t, err)
	assert.Equal(t, 100, available)

	t.Run("キャンセル済みのcontext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := env.service.SweepExpiredHolds(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTicketService_HoldIDsAreNeverReused(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	first, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, Customer: customer})
	require.NoError(t, err)

	env.clock.Advance(2 * time.Second)
	second, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 1, Customer: customer})
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, first.SeatKeys(), second.SeatKeys(), "解放された座席が再び最良の座席になる")
}

func TestTicketService_ConcurrentHolds(t *testing.T) {
	env := setupTestEnv(t, twoLevelVenue(t))
	ctx := context.Background()

	t.Run("50並行リクエストで20席のレベルは10件のみ成功", func(t *testing.T) {
		const numGoroutines = 50
		var successCount, failCount int32
		var mu sync.Mutex
		var holds []*seathold.SeatHold
		var wg sync.WaitGroup

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				h, err := env.service.FindAndHold(ctx, FindAndHoldInput{
					NumSeats: 2,
					MinLevel: intPtr(1),
					Customer: fmt.Sprintf("user%d@example.com", n),
				})
				if err != nil {
					assert.ErrorIs(t, err, seat.ErrNoAvailableSeats)
					atomic.AddInt32(&failCount, 1)
					return
				}
				atomic.AddInt32(&successCount, 1)
				mu.Lock()
				holds = append(holds, h)
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(10), successCount)
		assert.Equal(t, int32(numGoroutines-10), failCount)

		ids := make(map[int64]struct{})
		keys := make(map[seat.Key]struct{})
		for _, h := range holds {
			ids[h.ID] = struct{}{}
			for _, k := range h.SeatKeys() {
				keys[k] = struct{}{}
			}
		}
		assert.Len(t, ids, 10, "IDは重複しない")
		assert.Len(t, keys, 20, "座席は重複して仮押さえされない")

		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

// fakeCache はメモリ上のSeatCountCache
type fakeCache struct {
	mu          sync.Mutex
	counts      map[string]int
	getErr      error
	invalidErr  error
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{counts: make(map[string]int)}
}

func (c *fakeCache) GetAvailableCount(ctx context.Context, scope string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return 0, c.getErr
	}
	n, ok := c.counts[scope]
	if !ok {
		return 0, redisinfra.ErrCacheMiss
	}
	return n, nil
}

func (c *fakeCache) SetAvailableCount(ctx context.Context, scope string, count int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scope] = count
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidErr != nil {
		return c.invalidErr
	}
	c.counts = make(map[string]int)
	c.invalidated++
	return nil
}

func TestTicketService_SeatCache(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュに保存され、仮押さえで無効化される", func(t *testing.T) {
		cache := newFakeCache()
		env := setupTestEnv(t, twoLevelVenue(t), WithSeatCache(cache, time.Minute))

		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 20, n)
		assert.Equal(t, 20, cache.counts[redisinfra.LevelScope(1)])

		// キャッシュの値が返る
		cache.counts[redisinfra.LevelScope(1)] = 99
		n, err = env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 99, n)

		_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)
		// 最初の読み取り前と仮押さえ後
		assert.Equal(t, 2, cache.invalidated)

		n, err = env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 18, n)
	})

	t.Run("期限切れの解放で無効化される", func(t *testing.T) {
		cache := newFakeCache()
		env := setupTestEnv(t, twoLevelVenue(t), WithSeatCache(cache, time.Minute))

		_, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)
		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 98, n)

		env.clock.Advance(2 * time.Second)
		n, err = env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})

	t.Run("以前の値は最初の読み取り前に破棄される", func(t *testing.T) {
		cache := newFakeCache()
		cache.counts[redisinfra.ScopeAll] = 3
		env := setupTestEnv(t, twoLevelVenue(t), WithSeatCache(cache, time.Minute))

		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
		assert.Equal(t, 100, cache.counts[redisinfra.ScopeAll])
	})

	t.Run("無効化に失敗したらキャッシュを読まない", func(t *testing.T) {
		cache := newFakeCache()
		env := setupTestEnv(t, twoLevelVenue(t), WithSeatCache(cache, time.Minute))

		n, err := env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 20, n)

		cache.mu.Lock()
		cache.invalidErr = errors.New("connection reset")
		cache.mu.Unlock()

		_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
		require.NoError(t, err)

		n, err = env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 18, n)
		// 無効化できるまでは保存もしない
		assert.Equal(t, 20, cache.counts[redisinfra.LevelScope(1)])

		// 復旧後は無効化してから再びキャッシュを使う
		cache.mu.Lock()
		cache.invalidErr = nil
		cache.mu.Unlock()

		n, err = env.service.CountAvailable(ctx, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 18, n)
		assert.Equal(t, 18, cache.counts[redisinfra.LevelScope(1)])
	})

	t.Run("キャッシュの障害は在庫から数える", func(t *testing.T) {
		cache := newFakeCache()
		cache.getErr = errors.New("connection refused")
		env := setupTestEnv(t, twoLevelVenue(t), WithSeatCache(cache, time.Minute))

		n, err := env.service.CountAvailable(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})
}

func TestTicketService_Metrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	env := setupTestEnv(t, twoLevelVenue(t), WithMetrics(m))
	ctx := context.Background()

	hold, err := env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
	require.NoError(t, err)
	_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 2, Customer: customer})
	require.NoError(t, err)
	_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 100, Customer: customer})
	require.Error(t, err)
	_, err = env.service.FindAndHold(ctx, FindAndHoldInput{NumSeats: 0, Customer: customer})
	require.Error(t, err)

	_, err = env.service.Reserve(ctx, hold.ID, customer)
	require.NoError(t, err)
	_, err = env.service.Reserve(ctx, 999, customer)
	require.Error(t, err)

	_, err = env.service.CountAvailable(ctx, intPtr(2))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeatHoldsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatHoldsTotal.WithLabelValues("no_seats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatHoldsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveHolds.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveHolds.WithLabelValues("reserved")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.AvailableSeats.WithLabelValues("2")))

	env.clock.Advance(2 * time.Second)
	_, err = env.service.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpiredHoldsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveHolds.WithLabelValues("pending")))
}
