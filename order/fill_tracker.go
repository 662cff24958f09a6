package order

import (
	"sync"
	"time"

	"order-lifecycle/clock"
)

// FillEvent 成交记录
type FillEvent struct {
	OrderID   OrderID
	Kind      FillKind
	Timestamp time.Time
}

// FillTracker 跟踪近期成交，供上游判断是否应暂缓撤单
type FillTracker struct {
	mu    sync.RWMutex
	clock clock.Clock

	// 近期成交记录（滑动窗口）
	recentFills []FillEvent
	maxHistory  int
	windowSize  time.Duration

	totalFills   int
	fullFills    int
	partialFills int
}

// NewFillTracker 创建成交跟踪器
func NewFillTracker(maxHistory int, windowSize time.Duration, c clock.Clock) *FillTracker {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	if windowSize <= 0 {
		windowSize = 5 * time.Minute
	}
	if c == nil {
		c = clock.UTC
	}
	return &FillTracker{
		clock:       c,
		recentFills: make([]FillEvent, 0, maxHistory),
		maxHistory:  maxHistory,
		windowSize:  windowSize,
	}
}

// RecordFill 记录成交
func (f *FillTracker) RecordFill(id OrderID, kind FillKind) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recentFills = append(f.recentFills, FillEvent{
		OrderID:   id,
		Kind:      kind,
		Timestamp: f.clock.Now(),
	})
	f.totalFills++
	if kind == FillFull {
		f.fullFills++
	} else {
		f.partialFills++
	}
	f.cleanOldFillsUnsafe()
}

// cleanOldFillsUnsafe 清理超出窗口的成交记录（调用方持锁）
func (f *FillTracker) cleanOldFillsUnsafe() {
	cutoff := f.clock.Now().Add(-f.windowSize)

	validStart := len(f.recentFills)
	for i, fill := range f.recentFills {
		if fill.Timestamp.After(cutoff) {
			validStart = i
			break
		}
	}
	if validStart > 0 {
		f.recentFills = f.recentFills[validStart:]
	}

	if len(f.recentFills) > f.maxHistory {
		f.recentFills = f.recentFills[len(f.recentFills)-f.maxHistory:]
	}
}

// RecentFillRate 窗口内每分钟成交次数
func (f *FillTracker) RecentFillRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	minutes := f.windowSize.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(f.countSinceUnsafe(f.windowSize)) / minutes
}

func (f *FillTracker) countSinceUnsafe(d time.Duration) int {
	cutoff := f.clock.Now().Add(-d)
	n := 0
	for _, fill := range f.recentFills {
		if fill.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

// ShouldSuppressCancel 近期成交过于频繁时建议上游暂缓撤单
func (f *FillTracker) ShouldSuppressCancel(recentFillsThreshold int, checkDuration time.Duration) bool {
	if recentFillsThreshold <= 0 {
		return false
	}
	if checkDuration <= 0 {
		checkDuration = time.Minute
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.countSinceUnsafe(checkDuration) >= recentFillsThreshold
}

// Stats 获取统计信息
func (f *FillTracker) Stats() FillTrackerStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FillTrackerStats{
		TotalFills:   f.totalFills,
		FullFills:    f.fullFills,
		PartialFills: f.partialFills,
		RecentFills:  len(f.recentFills),
	}
}

// FillTrackerStats 成交跟踪器统计
type FillTrackerStats struct {
	TotalFills   int
	FullFills    int
	PartialFills int
	RecentFills  int
}
