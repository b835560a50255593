// Package clock は現在時刻の取得を抽象化する
package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を返す
type Clock interface {
	Now() time.Time
}

// Real はシステム時刻を返すClock
type Real struct{}

// Now は現在時刻を返す
func (Real) Now() time.Time {
	return time.Now()
}

// Fake はテスト用の手動で進めるClock
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake は指定時刻から始まるFakeを作成する
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now は現在の偽時刻を返す
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance は時刻を進める
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set は時刻を設定する
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}
