package order

import "time"

// Visitor 每个状态变体对应一个方法。实现方缺少任何一个方法都无法通过编译。
type Visitor interface {
	VisitInsertPending(InsertPending)
	VisitInserted(Inserted)
	VisitCancelPending(CancelPending)
	VisitFinalized(Finalized)
}

// Match 对状态做穷举分派。四个处理函数全部必填，不存在默认分支；
// 传入 nil 处理函数属于调用方编程错误，直接 panic。
func Match[T any](
	s State,
	onInsertPending func(InsertPending) T,
	onInserted func(Inserted) T,
	onCancelPending func(CancelPending) T,
	onFinalized func(Finalized) T,
) T {
	if onInsertPending == nil || onInserted == nil || onCancelPending == nil || onFinalized == nil {
		panic("order: Match requires a handler for every state")
	}
	if s == nil {
		panic("order: Match on nil state")
	}
	m := &matcher[T]{
		insertPending: onInsertPending,
		inserted:      onInserted,
		cancelPending: onCancelPending,
		finalized:     onFinalized,
	}
	s.Accept(m)
	return m.out
}

type matcher[T any] struct {
	insertPending func(InsertPending) T
	inserted      func(Inserted) T
	cancelPending func(CancelPending) T
	finalized     func(Finalized) T
	out           T
}

func (m *matcher[T]) VisitInsertPending(s InsertPending) { m.out = m.insertPending(s) }
func (m *matcher[T]) VisitInserted(s Inserted)           { m.out = m.inserted(s) }
func (m *matcher[T]) VisitCancelPending(s CancelPending) { m.out = m.cancelPending(s) }
func (m *matcher[T]) VisitFinalized(s Finalized)         { m.out = m.finalized(s) }

// Tag 返回状态标签。
func Tag(s State) StateTag {
	return Match(s,
		func(InsertPending) StateTag { return TagInsertPending },
		func(Inserted) StateTag { return TagInserted },
		func(CancelPending) StateTag { return TagCancelPending },
		func(Finalized) StateTag { return TagFinalized },
	)
}

// RequestSentAt 仅 InsertPending / CancelPending 有在途请求时间。
func RequestSentAt(s State) (time.Time, bool) {
	type sent struct {
		at time.Time
		ok bool
	}
	r := Match(s,
		func(p InsertPending) sent { return sent{p.RequestSentAt(), true} },
		func(Inserted) sent { return sent{} },
		func(p CancelPending) sent { return sent{p.RequestSentAt(), true} },
		func(Finalized) sent { return sent{} },
	)
	return r.at, r.ok
}

// Reason 仅 Finalized 有终态原因。
func Reason(s State) (FinalizationReason, bool) {
	type reason struct {
		r  FinalizationReason
		ok bool
	}
	r := Match(s,
		func(InsertPending) reason { return reason{} },
		func(Inserted) reason { return reason{} },
		func(CancelPending) reason { return reason{} },
		func(f Finalized) reason { return reason{f.Reason(), true} },
	)
	return r.r, r.ok
}

// IsTerminal 是否终态。
func IsTerminal(s State) bool {
	_, ok := Reason(s)
	return ok
}

// RoundTrip 计算在途请求从发出到 now 的往返时间，无在途请求时返回 false。
func RoundTrip(s State, now time.Time) (time.Duration, bool) {
	at, ok := RequestSentAt(s)
	if !ok {
		return 0, false
	}
	return now.Sub(at), true
}
