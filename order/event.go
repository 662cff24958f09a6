package order

import "fmt"

// EventKind 外部事件类型，作为转换表的键。
type EventKind string

const (
	EventInsertAckReceived EventKind = "InsertAckReceived"
	EventInsertRejected    EventKind = "InsertRejected"
	EventCancelSent        EventKind = "CancelSent"
	EventCancelAckReceived EventKind = "CancelAckReceived"
	EventCancelRejected    EventKind = "CancelRejected"
	EventTradeFill         EventKind = "TradeFill"
)

// FillKind 成交类型。
type FillKind uint8

const (
	FillPartial FillKind = iota + 1
	FillFull
)

func (k FillKind) String() string {
	switch k {
	case FillPartial:
		return "Partial"
	case FillFull:
		return "Full"
	default:
		return fmt.Sprintf("FillKind(%d)", uint8(k))
	}
}

// Event 驱动订单状态变化的外部事件。
type Event interface {
	Kind() EventKind
}

// InsertAckReceived 交易所确认下单。
type InsertAckReceived struct{}

// InsertRejected 下单被拒（或超时后由外部协作者制造）。
type InsertRejected struct{}

// CancelSent 撤单请求已发出。
type CancelSent struct{}

// CancelAckReceived 交易所确认撤单。
type CancelAckReceived struct{}

// CancelRejected 撤单被拒，仅在启用对应边时合法。
type CancelRejected struct{}

// TradeFill 成交回报。
type TradeFill struct {
	Fill FillKind
}

func (InsertAckReceived) Kind() EventKind { return EventInsertAckReceived }
func (InsertRejected) Kind() EventKind    { return EventInsertRejected }
func (CancelSent) Kind() EventKind        { return EventCancelSent }
func (CancelAckReceived) Kind() EventKind { return EventCancelAckReceived }
func (CancelRejected) Kind() EventKind    { return EventCancelRejected }
func (TradeFill) Kind() EventKind         { return EventTradeFill }

func (e TradeFill) String() string { return fmt.Sprintf("TradeFill(%s)", e.Fill) }

// EventName 返回事件的可读名称，成交事件带上成交类型。
func EventName(ev Event) string {
	if ev == nil {
		return "<nil>"
	}
	if f, ok := ev.(TradeFill); ok {
		return f.String()
	}
	return string(ev.Kind())
}
