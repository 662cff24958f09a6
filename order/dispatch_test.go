package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingVisitor 编译期即要求四个方法齐全
type countingVisitor struct {
	insertPending, inserted, cancelPending, finalized int
	sentAt                                            []time.Time
	reasons                                           []FinalizationReason
}

func (v *countingVisitor) VisitInsertPending(s InsertPending) {
	v.insertPending++
	v.sentAt = append(v.sentAt, s.RequestSentAt())
}
func (v *countingVisitor) VisitInserted(Inserted) { v.inserted++ }
func (v *countingVisitor) VisitCancelPending(s CancelPending) {
	v.cancelPending++
	v.sentAt = append(v.sentAt, s.RequestSentAt())
}
func (v *countingVisitor) VisitFinalized(s Finalized) {
	v.finalized++
	v.reasons = append(v.reasons, s.Reason())
}

func allStates(t0 time.Time) []State {
	return []State{
		NewInsertPending(t0),
		NewInserted(),
		NewCancelPending(t0),
		NewFinalized(PartiallyTraded),
		NewFinalized(FullyTraded),
		NewFinalized(Cancelled),
	}
}

func TestVisitorDispatchesExactlyOnce(t *testing.T) {
	t0 := time.Unix(1000, 0)
	v := &countingVisitor{}
	for _, s := range allStates(t0) {
		s.Accept(v)
	}
	assert.Equal(t, 1, v.insertPending)
	assert.Equal(t, 1, v.inserted)
	assert.Equal(t, 1, v.cancelPending)
	assert.Equal(t, 3, v.finalized)
	assert.Equal(t, []time.Time{t0, t0}, v.sentAt)
	assert.Equal(t, []FinalizationReason{PartiallyTraded, FullyTraded, Cancelled}, v.reasons)
}

func TestMatchRequiresEveryHandler(t *testing.T) {
	assert.Panics(t, func() {
		Match[int](NewInserted(), nil,
			func(Inserted) int { return 1 },
			func(CancelPending) int { return 2 },
			func(Finalized) int { return 3 },
		)
	})
	assert.Panics(t, func() {
		Tag(nil)
	})
}

// 字段存在性：时间戳仅在 InsertPending/CancelPending，原因仅在 Finalized，二者从不同时存在
func TestFieldExistenceCoupling(t *testing.T) {
	t0 := time.Unix(2000, 0)
	for _, s := range allStates(t0) {
		at, hasTS := RequestSentAt(s)
		reason, hasReason := Reason(s)
		tag := Tag(s)

		assert.False(t, hasTS && hasReason, "state %v exposes both timestamp and reason", s)
		switch tag {
		case TagInsertPending, TagCancelPending:
			assert.True(t, hasTS, tag)
			assert.Equal(t, t0, at)
			assert.False(t, hasReason, tag)
		case TagInserted:
			assert.False(t, hasTS)
			assert.False(t, hasReason)
		case TagFinalized:
			assert.False(t, hasTS)
			assert.True(t, hasReason)
			assert.True(t, reason.Valid())
			assert.True(t, IsTerminal(s))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	t0 := time.Unix(3000, 0)
	rtt, ok := RoundTrip(NewCancelPending(t0), t0.Add(250*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, rtt)

	_, ok = RoundTrip(NewInserted(), t0)
	assert.False(t, ok)
}
