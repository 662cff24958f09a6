package order

import "time"

// Record 对外日志/持久化使用的扁平表示：{order_id, state_tag, payload}。
// 仅供展示，不作为兼容性契约。
type Record struct {
	OrderID       OrderID    `json:"order_id" yaml:"order_id"`
	State         StateTag   `json:"state_tag" yaml:"state_tag"`
	RequestSentAt *time.Time `json:"request_sent_at,omitempty" yaml:"request_sent_at,omitempty"`
	Reason        string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NewRecord 通过穷举分派生成订单快照记录。
func NewRecord(o *Order) Record {
	return RecordOf(o.ID(), o.Current())
}

// RecordOf 将 id 与状态组合为记录。
func RecordOf(id OrderID, s State) Record {
	return Match(s,
		func(p InsertPending) Record {
			at := p.RequestSentAt()
			return Record{OrderID: id, State: TagInsertPending, RequestSentAt: &at}
		},
		func(Inserted) Record {
			return Record{OrderID: id, State: TagInserted}
		},
		func(p CancelPending) Record {
			at := p.RequestSentAt()
			return Record{OrderID: id, State: TagCancelPending, RequestSentAt: &at}
		},
		func(f Finalized) Record {
			return Record{OrderID: id, State: TagFinalized, Reason: f.Reason().String()}
		},
	)
}

// Fields 转换为日志字段。
func (r Record) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"order_id":  string(r.OrderID),
		"state_tag": string(r.State),
	}
	if r.RequestSentAt != nil {
		fields["request_sent_at"] = r.RequestSentAt.UTC().Format(time.RFC3339Nano)
	}
	if r.Reason != "" {
		fields["reason"] = r.Reason
	}
	return fields
}
