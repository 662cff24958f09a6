package order

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrUnknownOrder      = errors.New("unknown order")
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrCancelSuppressed  = errors.New("cancel paced after recent fills")
)

// TransitionError 当前状态下事件没有定义的转换边。订单状态保持不变。
type TransitionError struct {
	From  StateTag
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s --%s-->", e.From, EventName(e.Event))
}

// Is 使 errors.Is(err, ErrInvalidTransition) 成立。
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
