package alert

import (
	"fmt"
	"sync"
	"time"

	"order-lifecycle/clock"
)

// Level 告警级别
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Alert 告警信息
type Alert struct {
	Level     Level
	Message   string
	Key       string // 限流 key，为空时按 Level:Message
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Manager 告警管理器
type Manager struct {
	channels []Channel
	throttle *Throttler
	clock    clock.Clock
	mu       sync.RWMutex
}

// Throttler 告警限流器：同一 key 在 interval 内只放行一次
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	clock    clock.Clock
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration, c clock.Clock) *Throttler {
	if c == nil {
		c = clock.UTC
	}
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
		clock:    c,
	}
}

// Allow 检查是否允许发送
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	last, exists := t.lastSent[key]
	if !exists || now.Sub(last) >= t.interval {
		t.lastSent[key] = now
		return true
	}
	return false
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// NewManager 创建告警管理器
func NewManager(channels []Channel, throttleInterval time.Duration, c clock.Clock) *Manager {
	if c == nil {
		c = clock.UTC
	}
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval, c),
		clock:    c,
	}
}

// SendAlert 发送告警；被限流时静默返回 nil，全部通道失败时返回最后一个错误
func (m *Manager) SendAlert(alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = m.clock.Now()
	}
	key := alert.Key
	if key == "" {
		key = fmt.Sprintf("%s:%s", alert.Level, alert.Message)
	}
	if !m.throttle.Allow(key) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	successCount := 0
	for _, ch := range m.channels {
		if err := ch.Send(alert); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
		} else {
			successCount++
		}
	}
	if successCount == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// NotifyRejection 无效转换告警，按 (from, event) 限流，重复回报不会刷屏
func (m *Manager) NotifyRejection(orderID, from, event string, err error) error {
	return m.SendAlert(Alert{
		Level:   LevelWarning,
		Message: "invalid order transition",
		Key:     fmt.Sprintf("rejection:%s:%s", from, event),
		Fields: map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"event":    event,
			"error":    err.Error(),
		},
	})
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Channels 获取所有通道名称
func (m *Manager) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// ResetThrottle 重置限流器
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}
