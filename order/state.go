package order

import (
	"fmt"
	"strings"
	"time"
)

// StateTag 标识订单当前所处的生命周期阶段，仅用于日志/指标等对外展示。
type StateTag string

const (
	TagInsertPending StateTag = "InsertPending"
	TagInserted      StateTag = "Inserted"
	TagCancelPending StateTag = "CancelPending"
	TagFinalized     StateTag = "Finalized"
)

// FinalizationReason 终态原因。没有“未终结”取值：非 Finalized 状态根本不携带该字段。
type FinalizationReason uint8

const (
	_ FinalizationReason = iota
	PartiallyTraded
	FullyTraded
	Cancelled
)

func (r FinalizationReason) String() string {
	switch r {
	case PartiallyTraded:
		return "PartiallyTraded"
	case FullyTraded:
		return "FullyTraded"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("FinalizationReason(%d)", uint8(r))
	}
}

// Valid 判断是否为已定义的终态原因。
func (r FinalizationReason) Valid() bool {
	return r >= PartiallyTraded && r <= Cancelled
}

// ParseFinalizationReason 解析配置或日志中的原因名称（大小写不敏感）。
func ParseFinalizationReason(s string) (FinalizationReason, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "") {
	case "partiallytraded":
		return PartiallyTraded, nil
	case "fullytraded":
		return FullyTraded, nil
	case "cancelled", "canceled":
		return Cancelled, nil
	}
	return 0, fmt.Errorf("unknown finalization reason %q", s)
}

// State 订单状态，封闭的四选一：InsertPending / Inserted / CancelPending / Finalized。
// isState 未导出，包外无法新增实现。
type State interface {
	isState()
	// Accept 将自身交给 Visitor 对应的方法处理。
	Accept(v Visitor)
}

// InsertPending 下单请求已发出，交易所尚未确认。
type InsertPending struct {
	requestSentAt time.Time
}

// NewInsertPending 构造 InsertPending，必须给出请求发出时间。
func NewInsertPending(requestSentAt time.Time) InsertPending {
	return InsertPending{requestSentAt: requestSentAt}
}

func (InsertPending) isState() {}

// RequestSentAt 下单请求发出时间。
func (s InsertPending) RequestSentAt() time.Time { return s.requestSentAt }

func (s InsertPending) Accept(v Visitor) { v.VisitInsertPending(s) }

func (s InsertPending) String() string {
	return fmt.Sprintf("InsertPending{request_sent_at=%s}", s.requestSentAt.Format(time.RFC3339Nano))
}

// Inserted 交易所已确认的活跃订单，无在途请求。
type Inserted struct{}

// NewInserted 构造 Inserted，无需任何数据。
func NewInserted() Inserted { return Inserted{} }

func (Inserted) isState() {}

func (s Inserted) Accept(v Visitor) { v.VisitInserted(s) }

func (Inserted) String() string { return "Inserted{}" }

// CancelPending 撤单请求已发出，等待确认。
type CancelPending struct {
	requestSentAt time.Time
}

// NewCancelPending 构造 CancelPending，必须给出撤单请求发出时间。
func NewCancelPending(requestSentAt time.Time) CancelPending {
	return CancelPending{requestSentAt: requestSentAt}
}

func (CancelPending) isState() {}

// RequestSentAt 撤单请求发出时间。
func (s CancelPending) RequestSentAt() time.Time { return s.requestSentAt }

func (s CancelPending) Accept(v Visitor) { v.VisitCancelPending(s) }

func (s CancelPending) String() string {
	return fmt.Sprintf("CancelPending{request_sent_at=%s}", s.requestSentAt.Format(time.RFC3339Nano))
}

// Finalized 终态，之后不再有任何转换。
type Finalized struct {
	reason FinalizationReason
}

// NewFinalized 构造终态。未定义的原因（包括零值）按 Cancelled 处理。
func NewFinalized(reason FinalizationReason) Finalized {
	if !reason.Valid() {
		reason = Cancelled
	}
	return Finalized{reason: reason}
}

func (Finalized) isState() {}

// Reason 终态原因。
func (s Finalized) Reason() FinalizationReason { return s.reason }

func (s Finalized) Accept(v Visitor) { v.VisitFinalized(s) }

func (s Finalized) String() string { return fmt.Sprintf("Finalized{reason=%s}", s.reason) }

// Equal 比较两个状态：变体相同且负载相同。时间按 time.Time.Equal 比较。
func Equal(a, b State) bool {
	switch x := a.(type) {
	case InsertPending:
		y, ok := b.(InsertPending)
		return ok && x.requestSentAt.Equal(y.requestSentAt)
	case Inserted:
		_, ok := b.(Inserted)
		return ok
	case CancelPending:
		y, ok := b.(CancelPending)
		return ok && x.requestSentAt.Equal(y.requestSentAt)
	case Finalized:
		y, ok := b.(Finalized)
		return ok && x.reason == y.reason
	}
	return false
}
