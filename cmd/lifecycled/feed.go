package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"order-lifecycle/infrastructure/logger"
	"order-lifecycle/order"
)

// command 一行 JSON 输入
type command struct {
	OrderID  string  `json:"order_id"`
	Event    string  `json:"event"`
	Fill     string  `json:"fill,omitempty"`
	ClientID string  `json:"client_id,omitempty"`
	Symbol   string  `json:"symbol,omitempty"`
	Side     string  `json:"side,omitempty"`
	Type     string  `json:"type,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
}

func decodeEvent(c command) (order.Event, error) {
	switch strings.ToLower(c.Event) {
	case "insert_ack":
		return order.InsertAckReceived{}, nil
	case "insert_reject":
		return order.InsertRejected{}, nil
	case "cancel_sent":
		return order.CancelSent{}, nil
	case "cancel_ack":
		return order.CancelAckReceived{}, nil
	case "cancel_reject":
		return order.CancelRejected{}, nil
	case "fill":
		switch strings.ToLower(c.Fill) {
		case "partial":
			return order.TradeFill{Fill: order.FillPartial}, nil
		case "full":
			return order.TradeFill{Fill: order.FillFull}, nil
		}
		return nil, fmt.Errorf("unknown fill kind %q", c.Fill)
	}
	return nil, fmt.Errorf("unknown event %q", c.Event)
}

// processor 串行消费输入流，保证同一订单单写者
type processor struct {
	mgr *order.Manager
	out *json.Encoder
	log *logger.Logger
}

func newProcessor(mgr *order.Manager, out io.Writer, log *logger.Logger) *processor {
	return &processor{mgr: mgr, out: json.NewEncoder(out), log: log}
}

// run 读取直到 EOF 或 ctx 结束，单行错误只记录不中断
func (p *processor) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if err := p.process(ctx, []byte(raw)); err != nil {
			p.log.LogError(err, map[string]interface{}{"line": line})
		}
	}
	return sc.Err()
}

func (p *processor) process(ctx context.Context, raw []byte) error {
	var c command
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	switch strings.ToLower(c.Event) {
	case "submit":
		o, err := p.mgr.Submit(ctx, order.Request{
			ID:       order.OrderID(c.OrderID),
			ClientID: c.ClientID,
			Symbol:   strings.ToUpper(c.Symbol),
			Side:     strings.ToUpper(c.Side),
			Type:     strings.ToUpper(c.Type),
			Price:    c.Price,
			Quantity: c.Quantity,
		})
		if o != nil {
			if encErr := p.out.Encode(order.NewRecord(o)); encErr != nil {
				return encErr
			}
		}
		return err
	case "cancel":
		st, err := p.mgr.Cancel(ctx, order.OrderID(c.OrderID))
		if err != nil {
			return err
		}
		return p.out.Encode(order.RecordOf(order.OrderID(c.OrderID), st))
	}

	ev, err := decodeEvent(c)
	if err != nil {
		return err
	}
	st, err := p.mgr.Handle(order.OrderID(c.OrderID), ev)
	if err != nil {
		return err
	}
	return p.out.Encode(order.RecordOf(order.OrderID(c.OrderID), st))
}
