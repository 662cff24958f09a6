package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"order-lifecycle/clock"
	"order-lifecycle/infrastructure/logger"
	"order-lifecycle/order"
)

// 一个极简的本地模拟：随机生成交易所回报，驱动订单状态机。
// 不连接真实交易所，回报与延迟全部随机产生。
func main() {
	orders := flag.Int("orders", 5, "number of orders to simulate")
	steps := flag.Int("steps", 8, "max events per order")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	cancelRatio := flag.Float64("cancelRatio", 0.3, "probability of sending a cancel on a live order")
	dupRatio := flag.Float64("dupRatio", 0.1, "probability of replaying the previous event (duplicate ack)")
	cancelReject := flag.Bool("cancelReject", false, "enable CancelPending --CancelRejected--> Inserted")
	logLevel := flag.String("logLevel", "warn", "log level")
	flag.Parse()

	lg, err := logger.New(logger.Config{Level: *logLevel, Outputs: []string{"stderr"}, Format: "console"})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	engine, err := order.NewEngine(order.EngineConfig{CancelRejectRestoresInserted: *cancelReject})
	if err != nil {
		log.Fatalf("init engine: %v", err)
	}
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	mgr := order.NewManager(&mockGateway{}, engine, clk)
	mgr.SetLogger(lg)

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	rejected := 0

	for i := 0; i < *orders; i++ {
		o, err := mgr.Submit(ctx, order.Request{
			ClientID: "sim",
			Symbol:   "BTCUSDT",
			Side:     []string{"BUY", "SELL"}[rng.Intn(2)],
			Price:    100 + rng.NormFloat64(),
			Quantity: 1,
		})
		if err != nil {
			lg.Warn("submit failed", zap.Error(err))
			continue
		}
		var last order.Event
		for s := 0; s < *steps && !order.IsTerminal(o.Current()); s++ {
			clk.Advance(time.Duration(1+rng.Intn(50)) * time.Millisecond)
			ev := nextEvent(rng, o.Current(), *cancelRatio)
			if last != nil && rng.Float64() < *dupRatio {
				ev = last
			}
			if ev == nil {
				_, err = mgr.Cancel(ctx, o.ID())
				ev = order.CancelSent{}
			} else {
				_, err = mgr.Handle(o.ID(), ev)
			}
			if err != nil {
				rejected++
			}
			last = ev
		}
		if err := enc.Encode(order.NewRecord(o)); err != nil {
			log.Fatalf("encode record: %v", err)
		}
	}

	counts := mgr.Book().CountByState()
	fmt.Fprintf(os.Stderr, "orders=%d finalized=%d live=%d rejectedEvents=%d fills=%d\n",
		*orders, counts[order.TagFinalized], *orders-counts[order.TagFinalized], rejected, mgr.Fills().Stats().TotalFills)
}

// nextEvent 根据当前状态挑一个“交易所可能发来”的事件；返回 nil 表示由本地发起撤单。
func nextEvent(rng *rand.Rand, s order.State, cancelRatio float64) order.Event {
	return order.Match(s,
		func(order.InsertPending) order.Event {
			if rng.Float64() < 0.9 {
				return order.InsertAckReceived{}
			}
			return order.InsertRejected{}
		},
		func(order.Inserted) order.Event {
			r := rng.Float64()
			switch {
			case r < cancelRatio:
				return nil
			case r < cancelRatio+0.4:
				return order.TradeFill{Fill: order.FillPartial}
			default:
				return order.TradeFill{Fill: order.FillFull}
			}
		},
		func(order.CancelPending) order.Event {
			r := rng.Float64()
			switch {
			case r < 0.7:
				return order.CancelAckReceived{}
			case r < 0.85:
				return order.CancelRejected{}
			default:
				return order.TradeFill{Fill: order.FillFull}
			}
		},
		func(order.Finalized) order.Event { return order.InsertAckReceived{} },
	)
}

// mockGateway 用于本地模拟下单。
type mockGateway struct{ placed, canceled int }

func (m *mockGateway) Place(context.Context, order.Request) error {
	m.placed++
	return nil
}

func (m *mockGateway) Cancel(context.Context, order.OrderID) error {
	m.canceled++
	return nil
}
