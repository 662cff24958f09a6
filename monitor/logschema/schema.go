package logschema

import (
	"fmt"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"order_submitted": {
		Event:    "order_submitted",
		Required: []string{"order_id", "symbol", "side", "state_tag"},
	},
	"order_transition": {
		Event:    "order_transition",
		Required: []string{"order_id", "from", "to", "event"},
	},
	"order_rejected": {
		Event:    "order_rejected",
		Required: []string{"order_id", "from", "event", "error"},
	},
	"order_timeout": {
		Event:    "order_timeout",
		Required: []string{"order_id", "state_tag", "age_ms"},
	},
	"order_cancel_failed": {
		Event:    "order_cancel_failed",
		Required: []string{"order_id", "error"},
	},
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}
