package order

import (
	"sync/atomic"

	"order-lifecycle/clock"
)

// OrderID 订单标识。
type OrderID string

// stateBox 把接口值装箱，使整个状态能被一次原子指针写替换。
type stateBox struct {
	state State
}

// Order 订单实体：标识 + 唯一的当前状态。
// 状态只能通过 Engine.Apply 整体替换；读者可并发调用 Current。
type Order struct {
	id    OrderID
	state atomic.Pointer[stateBox]
}

// NewOrder 在下单请求发出时创建订单，初始状态为 InsertPending{now}。
func NewOrder(id OrderID, c clock.Clock) *Order {
	o := &Order{id: id}
	o.state.Store(&stateBox{state: NewInsertPending(c.Now())})
	return o
}

// ID 订单标识。
func (o *Order) ID() OrderID { return o.id }

// Current 当前状态快照，永远是完整构造的某一个变体。
// Order 只能通过 NewOrder 创建，零值 Order 没有状态，调用 Current 会 panic。
func (o *Order) Current() State {
	box := o.state.Load()
	if box == nil {
		panic("order: Order must be created with NewOrder")
	}
	return box.state
}

// commit 由 Engine 调用，整体替换状态。
func (o *Order) commit(s State) {
	o.state.Store(&stateBox{state: s})
}
