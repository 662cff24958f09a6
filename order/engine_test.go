package order

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-lifecycle/clock"
)

func allEvents() []Event {
	return []Event{
		InsertAckReceived{},
		InsertRejected{},
		CancelSent{},
		CancelAckReceived{},
		CancelRejected{},
		TradeFill{Fill: FillPartial},
		TradeFill{Fill: FillFull},
	}
}

func newTestOrder(t *testing.T, clk clock.Clock) *Order {
	t.Helper()
	return NewOrder("ord-1", clk)
}

// forceState 测试辅助：直接替换状态以覆盖任意起点
func forceState(o *Order, s State) { o.commit(s) }

func TestEngineTransitionGrid(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := t0.Add(3 * time.Second)
	clk := clock.NewManual(now)

	type edge struct {
		from State
		ev   Event
		want State
	}
	defaults := []edge{
		{NewInsertPending(t0), InsertAckReceived{}, NewInserted()},
		{NewInsertPending(t0), InsertRejected{}, NewFinalized(Cancelled)},
		{NewInserted(), CancelSent{}, NewCancelPending(now)},
		{NewInserted(), TradeFill{Fill: FillFull}, NewFinalized(FullyTraded)},
		{NewInserted(), TradeFill{Fill: FillPartial}, NewInserted()},
		{NewCancelPending(t0), CancelAckReceived{}, NewFinalized(Cancelled)},
		{NewCancelPending(t0), TradeFill{Fill: FillFull}, NewFinalized(FullyTraded)},
	}
	optional := []edge{
		{NewCancelPending(t0), CancelRejected{}, NewInserted()},
		{NewCancelPending(t0), TradeFill{Fill: FillPartial}, NewCancelPending(t0)},
	}

	cases := []struct {
		name  string
		cfg   EngineConfig
		legal []edge
	}{
		{"default", DefaultEngineConfig(), defaults},
		{"all_edges", EngineConfig{
			InsertRejectReason:           Cancelled,
			CancelRejectRestoresInserted: true,
			FillDuringCancelKeepsPending: true,
		}, append(append([]edge{}, defaults...), optional...)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := MustNewEngine(tc.cfg)
			isLegal := func(from State, ev Event) (State, bool) {
				for _, e := range tc.legal {
					if Tag(e.from) == Tag(from) && EventName(e.ev) == EventName(ev) {
						return e.want, true
					}
				}
				return nil, false
			}

			for _, from := range allStates(t0) {
				for _, ev := range allEvents() {
					o := newTestOrder(t, clk)
					forceState(o, from)

					got, err := engine.Apply(o, ev, clk)
					want, ok := isLegal(from, ev)
					if ok {
						require.NoError(t, err, "%v --%s-->", from, EventName(ev))
						assert.True(t, Equal(want, got), "%v --%s--> got %v want %v", from, EventName(ev), got, want)
						assert.True(t, Equal(want, o.Current()))
						continue
					}
					require.Error(t, err, "%v --%s--> should be rejected", from, EventName(ev))
					assert.True(t, errors.Is(err, ErrInvalidTransition))
					var te *TransitionError
					require.True(t, errors.As(err, &te))
					assert.Equal(t, Tag(from), te.From)
					assert.Equal(t, EventName(ev), EventName(te.Event))
					assert.Nil(t, got)
					assert.True(t, Equal(from, o.Current()), "state changed on rejected %v --%s-->", from, EventName(ev))
				}
			}
		})
	}
}

func TestFinalizedIsTerminal(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	engine := MustNewEngine(EngineConfig{CancelRejectRestoresInserted: true, FillDuringCancelKeepsPending: true})
	for _, reason := range []FinalizationReason{PartiallyTraded, FullyTraded, Cancelled} {
		o := newTestOrder(t, clk)
		forceState(o, NewFinalized(reason))
		for _, ev := range allEvents() {
			for i := 0; i < 3; i++ {
				_, err := engine.Apply(o, ev, clk)
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		}
		assert.True(t, Equal(NewFinalized(reason), o.Current()))
		assert.Empty(t, engine.Allowed(TagFinalized))
	}
}

func TestScenarios(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	engine := MustNewEngine(DefaultEngineConfig())

	// 确认后无在途请求
	o := NewOrder("s1", clk)
	require.True(t, Equal(NewInsertPending(t0), o.Current()))
	clk.Advance(time.Second)
	_, err := engine.Apply(o, InsertAckReceived{}, clk)
	require.NoError(t, err)
	require.Equal(t, TagInserted, Tag(o.Current()))
	_, hasTS := RequestSentAt(o.Current())
	assert.False(t, hasTS)

	// 撤单记录发出时间
	t2 := clk.Advance(time.Second)
	_, err = engine.Apply(o, CancelSent{}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewCancelPending(t2), o.Current()))

	// 撤单确认
	clk.Advance(time.Second)
	_, err = engine.Apply(o, CancelAckReceived{}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewFinalized(Cancelled), o.Current()))

	// 终态后的重复确认被拒
	_, err = engine.Apply(o, InsertAckReceived{}, clk)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TagFinalized, te.From)
	assert.Equal(t, EventInsertAckReceived, te.Event.Kind())
	assert.True(t, Equal(NewFinalized(Cancelled), o.Current()))
	assert.Equal(t, "invalid transition: Finalized --InsertAckReceived-->", err.Error())

	// 全部成交
	o5 := NewOrder("s5", clk)
	forceState(o5, NewInserted())
	_, err = engine.Apply(o5, TradeFill{Fill: FillFull}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewFinalized(FullyTraded), o5.Current()))

	// 撤单确认前全部成交
	t3 := clk.Advance(time.Second)
	o6 := NewOrder("s6", clk)
	forceState(o6, NewCancelPending(t3))
	_, err = engine.Apply(o6, TradeFill{Fill: FillFull}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewFinalized(FullyTraded), o6.Current()))
}

func TestPartialThenFullFill(t *testing.T) {
	clk := clock.NewManual(time.Unix(10, 0))
	engine := MustNewEngine(DefaultEngineConfig())
	o := NewOrder("pf", clk)
	_, err := engine.Apply(o, InsertAckReceived{}, clk)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = engine.Apply(o, TradeFill{Fill: FillPartial}, clk)
		require.NoError(t, err)
		assert.Equal(t, TagInserted, Tag(o.Current()))
	}
	_, err = engine.Apply(o, TradeFill{Fill: FillFull}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewFinalized(FullyTraded), o.Current()))
}

func TestConfigurableEdges(t *testing.T) {
	t0 := time.Unix(100, 0)
	clk := clock.NewManual(t0.Add(time.Second))
	engine, err := NewEngine(EngineConfig{
		InsertRejectReason:           PartiallyTraded,
		CancelRejectRestoresInserted: true,
		FillDuringCancelKeepsPending: true,
	})
	require.NoError(t, err)

	o := NewOrder("cfg", clock.NewManual(t0))
	_, err = engine.Apply(o, InsertRejected{}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewFinalized(PartiallyTraded), o.Current()))

	o = NewOrder("cfg2", clk)
	forceState(o, NewCancelPending(t0))
	_, err = engine.Apply(o, TradeFill{Fill: FillPartial}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewCancelPending(t0), o.Current()), "partial fill keeps original request time")
	_, err = engine.Apply(o, CancelRejected{}, clk)
	require.NoError(t, err)
	assert.True(t, Equal(NewInserted(), o.Current()))

	assert.Equal(t, []string{"CancelAckReceived", "CancelRejected", "TradeFill(Full)", "TradeFill(Partial)"},
		engine.Allowed(TagCancelPending))
}

func TestNewEngineRejectsBadReason(t *testing.T) {
	_, err := NewEngine(EngineConfig{InsertRejectReason: FinalizationReason(42)})
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewEngine(EngineConfig{InsertRejectReason: FinalizationReason(42)}) })

	e, err := NewEngine(EngineConfig{})
	require.NoError(t, err)
	assert.Equal(t, Cancelled, e.Config().InsertRejectReason)
}

func TestNextNilEvent(t *testing.T) {
	engine := MustNewEngine(DefaultEngineConfig())
	_, err := engine.Next(NewInserted(), nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "<nil>")
}
