package order

import (
	"errors"
	"fmt"
	"math"
)

// ErrConstraint 下单请求不满足交易对精度/名义限制。
var ErrConstraint = errors.New("symbol constraint violated")

// SymbolConstraints 描述交易对的步长与名义限制。
type SymbolConstraints struct {
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MaxQty      float64
	MinNotional float64
}

// Validate 检查价格/数量是否符合精度与最小名义，错误可用 errors.Is(err, ErrConstraint) 判断。
func (c SymbolConstraints) Validate(price, qty float64) error {
	switch {
	case c.TickSize > 0 && !isMultiple(price, c.TickSize):
		return fmt.Errorf("%w: price %.8f not aligned to tickSize %.8f", ErrConstraint, price, c.TickSize)
	case c.StepSize > 0 && !isMultiple(qty, c.StepSize):
		return fmt.Errorf("%w: qty %.8f not aligned to stepSize %.8f", ErrConstraint, qty, c.StepSize)
	case qty <= 0:
		return fmt.Errorf("%w: qty %.8f must be > 0", ErrConstraint, qty)
	case c.MinQty > 0 && qty < c.MinQty:
		return fmt.Errorf("%w: qty %.8f < minQty %.8f", ErrConstraint, qty, c.MinQty)
	case c.MaxQty > 0 && qty > c.MaxQty:
		return fmt.Errorf("%w: qty %.8f > maxQty %.8f", ErrConstraint, qty, c.MaxQty)
	case c.MinNotional > 0 && price*qty < c.MinNotional:
		return fmt.Errorf("%w: notional %.8f < minNotional %.8f", ErrConstraint, price*qty, c.MinNotional)
	}
	return nil
}

func isMultiple(value, step float64) bool {
	if step <= 0 {
		return true
	}
	ratio := value / step
	return math.Abs(ratio-math.Round(ratio)) <= 1e-8
}
