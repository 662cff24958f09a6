package order

import (
	"fmt"
	"sort"
	"time"

	"order-lifecycle/clock"
)

// transitionKey 转换表的键。非成交事件的 fill 为零值。
type transitionKey struct {
	from  StateTag
	event EventKind
	fill  FillKind
}

func keyOf(from StateTag, ev Event) transitionKey {
	k := transitionKey{from: from, event: ev.Kind()}
	if f, ok := ev.(TradeFill); ok {
		k.fill = f.Fill
	}
	return k
}

// rule 根据源状态与当前时间计算目标状态。
type rule func(from State, now time.Time) State

// EngineConfig 可配置的转换边。
type EngineConfig struct {
	// InsertRejectReason 下单被拒时的终态原因，默认 Cancelled。
	InsertRejectReason FinalizationReason
	// CancelRejectRestoresInserted 启用 CancelPending --CancelRejected--> Inserted。
	CancelRejectRestoresInserted bool
	// FillDuringCancelKeepsPending 启用 CancelPending --TradeFill(Partial)--> CancelPending（保留原请求时间）。
	FillDuringCancelKeepsPending bool
}

// DefaultEngineConfig 默认配置。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{InsertRejectReason: Cancelled}
}

// Engine 订单状态变化的唯一入口。转换表在构造后只读，Engine 本身不持有时钟。
type Engine struct {
	table map[transitionKey]rule
	cfg   EngineConfig
}

// NewEngine 根据配置构建转换表。
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.InsertRejectReason == 0 {
		cfg.InsertRejectReason = Cancelled
	}
	if !cfg.InsertRejectReason.Valid() {
		return nil, fmt.Errorf("invalid insert reject reason %s", cfg.InsertRejectReason)
	}
	e := &Engine{table: make(map[transitionKey]rule), cfg: cfg}
	e.initializeTransitions()
	return e, nil
}

// MustNewEngine 同 NewEngine，配置非法时 panic。
func MustNewEngine(cfg EngineConfig) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) initializeTransitions() {
	to := func(s State) rule { return func(State, time.Time) State { return s } }
	rejectReason := e.cfg.InsertRejectReason

	// 从 InsertPending
	e.table[transitionKey{TagInsertPending, EventInsertAckReceived, 0}] = to(NewInserted())
	e.table[transitionKey{TagInsertPending, EventInsertRejected, 0}] = to(NewFinalized(rejectReason))

	// 从 Inserted
	e.table[transitionKey{TagInserted, EventCancelSent, 0}] = func(_ State, now time.Time) State {
		return NewCancelPending(now)
	}
	e.table[transitionKey{TagInserted, EventTradeFill, FillFull}] = to(NewFinalized(FullyTraded))
	e.table[transitionKey{TagInserted, EventTradeFill, FillPartial}] = to(NewInserted()) // 部分成交仍然存活

	// 从 CancelPending
	e.table[transitionKey{TagCancelPending, EventCancelAckReceived, 0}] = to(NewFinalized(Cancelled))
	e.table[transitionKey{TagCancelPending, EventTradeFill, FillFull}] = to(NewFinalized(FullyTraded)) // 撤单确认前全部成交

	if e.cfg.CancelRejectRestoresInserted {
		e.table[transitionKey{TagCancelPending, EventCancelRejected, 0}] = to(NewInserted())
	}
	if e.cfg.FillDuringCancelKeepsPending {
		e.table[transitionKey{TagCancelPending, EventTradeFill, FillPartial}] = func(from State, _ time.Time) State {
			return from
		}
	}

	// Finalized 是终态，不登记任何出边。
}

// Config 返回构建转换表时使用的配置。
func (e *Engine) Config() EngineConfig { return e.cfg }

// Next 计算 from 在 ev 下的目标状态，不修改任何订单。
func (e *Engine) Next(from State, ev Event, now time.Time) (State, error) {
	if ev == nil {
		return nil, &TransitionError{From: Tag(from), Event: ev}
	}
	tag := Tag(from)
	r, ok := e.table[keyOf(tag, ev)]
	if !ok {
		return nil, &TransitionError{From: tag, Event: ev}
	}
	return r(from, now), nil
}

// Apply 校验并应用事件。成功时新状态以一次原子写替换旧状态；
// 失败时返回 *TransitionError，订单保持原样。同一订单的 Apply 调用必须由上游串行化。
func (e *Engine) Apply(o *Order, ev Event, c clock.Clock) (State, error) {
	next, err := e.Next(o.Current(), ev, c.Now())
	if err != nil {
		return nil, err
	}
	o.commit(next)
	return next, nil
}

// Allowed 返回某状态下合法的事件名称（排序后）。
func (e *Engine) Allowed(from StateTag) []string {
	allowed := make([]string, 0)
	for k := range e.table {
		if k.from != from {
			continue
		}
		if k.event == EventTradeFill {
			allowed = append(allowed, TradeFill{Fill: k.fill}.String())
			continue
		}
		allowed = append(allowed, string(k.event))
	}
	sort.Strings(allowed)
	return allowed
}
