package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// ScopeAll は会場全体の空席数を表すキャッシュスコープ
const ScopeAll = "all"

// LevelScope はレベル単位の空席数のキャッシュスコープを返す
func LevelScope(levelID int) string {
	return "level:" + strconv.Itoa(levelID)
}

// SeatCache は空席数のキャッシュを管理する。
// 全スコープを1つのハッシュに格納し、Invalidate で一括削除する
type SeatCache struct {
	client *redis.Client
	key    string
}

// NewSeatCache は新しいSeatCacheインスタンスを作成する。
// 在庫はプロセスごとに作り直されるため、キーにはインスタンスごとのIDを含める
func NewSeatCache(client *redis.Client, venueName string) *SeatCache {
	return &SeatCache{
		client: client,
		key:    fmt.Sprintf("seats:available:%s:%s", venueName, uuid.NewString()),
	}
}

// GetAvailableCount はスコープの空席数をキャッシュから取得する
func (c *SeatCache) GetAvailableCount(ctx context.Context, scope string) (int, error) {
	val, err := c.client.HGet(ctx, c.key, scope).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount はスコープの空席数をキャッシュに保存する
func (c *SeatCache) SetAvailableCount(ctx context.Context, scope string, count int, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.key, scope, count)
	pipe.PExpire(ctx, c.key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は全スコープのキャッシュを無効化する
func (c *SeatCache) Invalidate(ctx context.Context) error {
	err := c.client.Del(ctx, c.key).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}
