package order

import (
	"context"
	"sync"
	"time"
)

// SweeperConfig 超时清理配置
type SweeperConfig struct {
	Interval      time.Duration // 扫描间隔
	InsertTimeout time.Duration // 下单确认超时，<=0 不处理
	CancelTimeout time.Duration // 撤单确认超时，<=0 不处理
}

// TimeoutSweeper 在途请求超时后制造拒绝事件（InsertRejected / CancelRejected），
// 事件经 Manager.Handle 进入，保持单写者约束。
type TimeoutSweeper struct {
	manager  *Manager
	interval time.Duration
	insertTO time.Duration
	cancelTO time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex

	totalSweeps   int64
	insertExpired int64
	cancelExpired int64
	lastSweepTime time.Time
}

// NewTimeoutSweeper 创建超时清理器
func NewTimeoutSweeper(manager *Manager, cfg SweeperConfig) *TimeoutSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &TimeoutSweeper{
		manager:  manager,
		interval: cfg.Interval,
		insertTO: cfg.InsertTimeout,
		cancelTO: cfg.CancelTimeout,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start 启动后台扫描
func (s *TimeoutSweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop 停止扫描并等待循环退出，仅在 Start 之后调用
func (s *TimeoutSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
}

func (s *TimeoutSweeper) loop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep 执行一次扫描，返回被制造拒绝事件的订单
func (s *TimeoutSweeper) Sweep() []OrderID {
	now := s.manager.clock.Now()
	cancelRejectEnabled := s.manager.engine.Config().CancelRejectRestoresInserted

	var expired []OrderID
	var nInsert, nCancel int64
	for _, f := range s.manager.InFlight() {
		age := now.Sub(f.SentAt)
		var ev Event
		switch f.State {
		case TagInsertPending:
			if s.insertTO > 0 && age >= s.insertTO {
				ev = InsertRejected{}
			}
		case TagCancelPending:
			if s.cancelTO > 0 && age >= s.cancelTO && cancelRejectEnabled {
				ev = CancelRejected{}
			}
		}
		if ev == nil {
			continue
		}
		s.manager.log.LogOrderWarn("order_timeout", string(f.ID), map[string]interface{}{
			"state_tag": string(f.State),
			"age_ms":    age.Milliseconds(),
		})
		// 扫描与回报之间存在竞争：订单可能已被确认，此时转换无效，直接跳过
		if _, err := s.manager.Handle(f.ID, ev); err != nil {
			continue
		}
		expired = append(expired, f.ID)
		if f.State == TagInsertPending {
			nInsert++
		} else {
			nCancel++
		}
	}

	s.mu.Lock()
	s.totalSweeps++
	s.insertExpired += nInsert
	s.cancelExpired += nCancel
	s.lastSweepTime = now
	s.mu.Unlock()
	return expired
}

// Statistics 获取扫描统计信息
func (s *TimeoutSweeper) Statistics() SweeperStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SweeperStats{
		TotalSweeps:   s.totalSweeps,
		InsertExpired: s.insertExpired,
		CancelExpired: s.cancelExpired,
		LastSweepTime: s.lastSweepTime,
		Interval:      s.interval,
	}
}

// SweeperStats 扫描统计信息
type SweeperStats struct {
	TotalSweeps   int64
	InsertExpired int64
	CancelExpired int64
	LastSweepTime time.Time
	Interval      time.Duration
}
