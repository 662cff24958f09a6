// Package clock 提供订单生命周期使用的时间源。
package clock

import (
	"sync"
	"time"
)

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// UTC 默认使用 UTC 时间。
var UTC Clock = realClock{}

// Manual 手动推进的时钟，用于测试与回放。
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual 创建起始于 t 的手动时钟。
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance 推进时间并返回推进后的时刻。
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set 直接设置当前时刻。
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Func 将普通函数适配为 Clock。
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
