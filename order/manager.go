package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-lifecycle/clock"
	"order-lifecycle/infrastructure/logger"
)

// Request 下单请求的静态信息，不随状态变化。
type Request struct {
	ID       OrderID
	ClientID string
	Symbol   string
	Side     string // BUY/SELL
	Type     string // LIMIT/MARKET
	Price    float64
	Quantity float64
}

// Gateway 提供基础下单/撤单抽象。实现不得在调用中同步回调 Manager。
type Gateway interface {
	Place(ctx context.Context, req Request) error
	Cancel(ctx context.Context, id OrderID) error
}

// Recorder 接收状态变化的指标回调，由 metrics 包实现。
type Recorder interface {
	ObserveTransition(from, to StateTag, event string)
	ObserveRejection(from StateTag, event string)
	ObserveRoundTrip(kind string, d time.Duration)
	SetStateCounts(counts map[StateTag]int)
}

// InFlight 一个在途请求（下单或撤单）。
type InFlight struct {
	ID     OrderID
	State  StateTag
	SentAt time.Time
}

type entry struct {
	mu    sync.Mutex // 同一订单的写操作串行化
	order *Order
	req   Request
}

// Manager 多订单的单写者路由：同一订单的所有事件经由 entry 锁串行进入 Engine。
type Manager struct {
	gw     Gateway
	engine *Engine
	clock  clock.Clock

	mu          sync.RWMutex
	orders      map[OrderID]*entry
	constraints map[string]SymbolConstraints

	book     *Book
	fills    *FillTracker
	log      *logger.Logger
	recorder Recorder
	onReject RejectionHandler

	forgetFinalized bool
	paceThreshold   int
	paceWindow      time.Duration
}

// RejectionHandler 无效转换回调，由调用方决定告警还是丢弃。在 entry 锁内调用，不得回调 Manager。
type RejectionHandler func(id OrderID, from StateTag, event string, err error)

func NewManager(gw Gateway, engine *Engine, c clock.Clock) *Manager {
	if engine == nil {
		engine = MustNewEngine(DefaultEngineConfig())
	}
	if c == nil {
		c = clock.UTC
	}
	return &Manager{
		gw:     gw,
		engine: engine,
		clock:  c,
		orders: make(map[OrderID]*entry),
		book:   NewBook(),
		fills:  NewFillTracker(0, 0, c),
		log:    logger.Nop(),
	}
}

// SetLogger 设置日志器，nil 时丢弃日志。
func (m *Manager) SetLogger(l *logger.Logger) {
	if l == nil {
		l = logger.Nop()
	}
	m.log = l
}

// SetRecorder 设置指标回调。
func (m *Manager) SetRecorder(r Recorder) { m.recorder = r }

// SetForgetFinalized 开启后订单进入 Finalized 即从活跃集合与 Book 中移除，
// 之后同一订单的事件返回 ErrUnknownOrder。归档交给持久化协作者。
func (m *Manager) SetForgetFinalized(on bool) {
	m.mu.Lock()
	m.forgetFinalized = on
	m.mu.Unlock()
}

// SetCancelPacing window 内成交次数达到 threshold 时暂缓撤单，threshold<=0 关闭。
func (m *Manager) SetCancelPacing(threshold int, window time.Duration) {
	m.mu.Lock()
	m.paceThreshold = threshold
	m.paceWindow = window
	m.mu.Unlock()
}

// SetRejectionHandler 设置无效转换回调。
func (m *Manager) SetRejectionHandler(h RejectionHandler) { m.onReject = h }

// Book 最新状态记录。
func (m *Manager) Book() *Book { return m.book }

// Fills 成交跟踪器。
func (m *Manager) Fills() *FillTracker { return m.fills }

// Engine 当前使用的转换引擎。
func (m *Manager) Engine() *Engine { return m.engine }

// Submit 校验约束、登记订单（InsertPending）并通过 Gateway 下单。
// 下单失败时按 InsertRejected 处理并返回错误。
func (m *Manager) Submit(ctx context.Context, req Request) (*Order, error) {
	if req.Type == "" {
		req.Type = "LIMIT"
	}
	if err := m.validateConstraint(req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = generateID(req.ClientID)
	}

	// 登记前先持有 entry 锁，初始记录写入 Book 之前其他写者无法推进状态
	e := &entry{req: req, order: NewOrder(req.ID, m.clock)}
	e.mu.Lock()
	m.mu.Lock()
	if _, exists := m.orders[req.ID]; exists {
		m.mu.Unlock()
		e.mu.Unlock()
		return nil, fmt.Errorf("submit %s: %w", req.ID, ErrDuplicateOrder)
	}
	m.orders[req.ID] = e
	m.mu.Unlock()

	rec := NewRecord(e.order)
	m.book.Set(rec)
	e.mu.Unlock()
	m.publishCounts()
	fields := rec.Fields()
	fields["symbol"] = req.Symbol
	fields["side"] = req.Side
	m.log.LogOrder("order_submitted", string(req.ID), fields)

	if m.gw == nil {
		return e.order, nil
	}
	if err := m.gw.Place(ctx, req); err != nil {
		e.mu.Lock()
		_, _ = m.applyLocked(e, InsertRejected{})
		e.mu.Unlock()
		return e.order, fmt.Errorf("place %s: %w", req.ID, err)
	}
	return e.order, nil
}

// Cancel 对活跃订单发出撤单，成功后进入 CancelPending。
// 当前状态不允许撤单时不会调用 Gateway，直接返回 *TransitionError。
func (m *Manager) Cancel(ctx context.Context, id OrderID) (State, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := m.engine.Next(e.order.Current(), CancelSent{}, m.clock.Now()); err != nil {
		m.reject(e, err, CancelSent{})
		return nil, err
	}
	if m.shouldPaceCancel() {
		err := fmt.Errorf("cancel %s: %w", id, ErrCancelSuppressed)
		m.log.LogOrderWarn("order_cancel_failed", string(id), map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	if m.gw != nil {
		if err := m.gw.Cancel(ctx, id); err != nil {
			m.log.LogOrderWarn("order_cancel_failed", string(id), map[string]interface{}{
				"error": err.Error(),
			})
			return nil, fmt.Errorf("cancel %s: %w", id, err)
		}
	}
	return m.applyLocked(e, CancelSent{})
}

// Handle 应用一条外部事件（回报、成交、超时制造的拒绝等）。
func (m *Manager) Handle(id OrderID, ev Event) (State, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.applyLocked(e, ev)
}

// applyLocked 调用方持有 e.mu。
func (m *Manager) applyLocked(e *entry, ev Event) (State, error) {
	now := m.clock.Now()
	prev := e.order.Current()
	next, err := m.engine.Apply(e.order, ev, clock.Func(func() time.Time { return now }))
	if err != nil {
		m.reject(e, err, ev)
		return nil, err
	}

	id := e.order.ID()
	from, to, name := Tag(prev), Tag(next), EventName(ev)

	if kind, ok := ackKind(ev); ok {
		if rtt, ok := RoundTrip(prev, now); ok && m.recorder != nil {
			m.recorder.ObserveRoundTrip(kind, rtt)
		}
	}
	if fill, ok := ev.(TradeFill); ok {
		m.fills.RecordFill(id, fill.Fill)
	}

	rec := RecordOf(id, next)
	if IsTerminal(next) && m.forgetsFinalized() {
		m.release(e)
	} else {
		m.book.Set(rec)
	}
	if m.recorder != nil {
		m.recorder.ObserveTransition(from, to, name)
	}
	m.publishCounts()

	fields := rec.Fields()
	fields["from"] = string(from)
	fields["to"] = string(to)
	fields["event"] = name
	m.log.LogOrder("order_transition", string(id), fields)
	return next, nil
}

func (m *Manager) reject(e *entry, err error, ev Event) {
	from := Tag(e.order.Current())
	var te *TransitionError
	if errors.As(err, &te) {
		from = te.From
	}
	if m.recorder != nil {
		m.recorder.ObserveRejection(from, EventName(ev))
	}
	m.log.LogOrderWarn("order_rejected", string(e.order.ID()), map[string]interface{}{
		"from":  string(from),
		"event": EventName(ev),
		"error": err.Error(),
	})
	if m.onReject != nil {
		m.onReject(e.order.ID(), from, EventName(ev), err)
	}
}

// ackKind 确认类事件对应的请求类型，用于 RTT 统计。
func ackKind(ev Event) (string, bool) {
	switch ev.Kind() {
	case EventInsertAckReceived:
		return "insert", true
	case EventCancelAckReceived:
		return "cancel", true
	}
	return "", false
}

func (m *Manager) lookup(id OrderID) (*entry, error) {
	m.mu.RLock()
	e, ok := m.orders[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrUnknownOrder)
	}
	return e, nil
}

// Get 返回订单，读者可并发调用 Current。
func (m *Manager) Get(id OrderID) (*Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.orders[id]
	if !ok {
		return nil, false
	}
	return e.order, true
}

// Request 返回订单的下单请求。
func (m *Manager) Request(id OrderID) (Request, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.orders[id]
	if !ok {
		return Request{}, false
	}
	return e.req, true
}

// Snapshot 返回所有登记订单的当前记录（按订单号排序）。
func (m *Manager) Snapshot() []Record {
	m.mu.RLock()
	res := make([]Record, 0, len(m.orders))
	for _, e := range m.orders {
		res = append(res, NewRecord(e.order))
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].OrderID < res[j].OrderID })
	return res
}

// InFlight 返回所有带在途请求的订单。
func (m *Manager) InFlight() []InFlight {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]InFlight, 0)
	for id, e := range m.orders {
		s := e.order.Current()
		if at, ok := RequestSentAt(s); ok {
			res = append(res, InFlight{ID: id, State: Tag(s), SentAt: at})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SentAt.Before(res[j].SentAt) })
	return res
}

func (m *Manager) forgetsFinalized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forgetFinalized
}

// release 调用方持有 e.mu。
func (m *Manager) release(e *entry) {
	id := e.order.ID()
	m.mu.Lock()
	if m.orders[id] == e {
		delete(m.orders, id)
	}
	m.mu.Unlock()
	m.book.Delete(id)
}

func (m *Manager) shouldPaceCancel() bool {
	m.mu.RLock()
	threshold, window := m.paceThreshold, m.paceWindow
	m.mu.RUnlock()
	return m.fills.ShouldSuppressCancel(threshold, window)
}

func (m *Manager) publishCounts() {
	if m.recorder != nil {
		m.recorder.SetStateCounts(m.book.CountByState())
	}
}

// generateID 生成唯一 ID，可带客户端前缀。
func generateID(prefix string) OrderID {
	if prefix == "" {
		prefix = "ord"
	}
	return OrderID(prefix + "-" + uuid.NewString())
}

// SetConstraints 设置各交易对的精度/名义限制。
func (m *Manager) SetConstraints(c map[string]SymbolConstraints) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make(map[string]SymbolConstraints, len(c))
	for sym, sc := range c {
		m.constraints[sym] = sc
	}
}

func (m *Manager) validateConstraint(req Request) error {
	m.mu.RLock()
	c, ok := m.constraints[req.Symbol]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if req.Type == "MARKET" || req.Type == "market" {
		return nil
	}
	return c.Validate(req.Price, req.Quantity)
}
