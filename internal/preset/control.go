package preset

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/gyaneshwarpardhi/patchpreset/internal/metrics"
)

var errNotState = errors.New("value is not a state mapping")

// Op is a recognised control operation.
type Op string

const (
	OpIgnore   Op = "ignored"
	OpRecall   Op = "recall"
	OpStore    Op = "store"
	OpClear    Op = "clear"
	OpClearAll Op = "clearall"
	OpPush     Op = "push" // data inlet only
)

// Command is a parsed control message.
type Command struct {
	Op   Op  `json:"op"`
	Slot int `json:"slot"`
}

// ParseControl recognises the control message shapes:
//
//	N             recall N
//	{"store": N}  store N
//	{"clear": N}  clear N
//	"clearall"    clear every slot
//
// Anything else parses to OpIgnore. Numbers are truncated toward zero.
func ParseControl(msg interface{}) Command {
	switch m := msg.(type) {
	case nil:
		return Command{Op: OpIgnore}
	case string:
		if m == "clearall" {
			return Command{Op: OpClearAll}
		}
		return Command{Op: OpIgnore}
	case map[string]interface{}:
		if v, ok := m["store"]; ok {
			if slot, ok := toSlot(v); ok {
				return Command{Op: OpStore, Slot: slot}
			}
			return Command{Op: OpIgnore}
		}
		if v, ok := m["clear"]; ok {
			if slot, ok := toSlot(v); ok {
				return Command{Op: OpClear, Slot: slot}
			}
		}
		return Command{Op: OpIgnore}
	}
	if slot, ok := toSlot(msg); ok {
		return Command{Op: OpRecall, Slot: slot}
	}
	return Command{Op: OpIgnore}
}

// Exec runs cmd. It reports false only for an ignored command or a recall
// of an empty slot.
func (e *Engine) Exec(cmd Command) bool {
	metrics.ControlMessages.WithLabelValues(string(cmd.Op)).Inc()
	switch cmd.Op {
	case OpRecall:
		return e.Recall(cmd.Slot)
	case OpStore:
		e.Store(cmd.Slot)
	case OpClear:
		e.Clear(cmd.Slot)
	case OpClearAll:
		e.ClearAll()
	default:
		return false
	}
	return true
}

// Inlet delivers msg to inlet n: control messages on InletControl, a
// node id → state mapping on InletData. The bool reports whether anything
// happened; unrecognised input is dropped.
func (e *Engine) Inlet(n int, msg interface{}) (Command, bool) {
	switch n {
	case InletControl:
		cmd := ParseControl(msg)
		return cmd, e.Exec(cmd)
	case InletData:
		if data, ok := msg.(map[string]interface{}); ok {
			e.Push(data)
			return Command{Op: OpPush}, true
		}
	}
	return Command{Op: OpIgnore}, false
}

// toSlot accepts any numeric kind whose magnitude fits in an int32.
// Fractions are truncated toward zero.
func toSlot(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return intSlot(int64(n))
	case int8:
		return intSlot(int64(n))
	case int16:
		return intSlot(int64(n))
	case int32:
		return intSlot(int64(n))
	case int64:
		return intSlot(n)
	case uint:
		return uintSlot(uint64(n))
	case uint8:
		return uintSlot(uint64(n))
	case uint16:
		return uintSlot(uint64(n))
	case uint32:
		return uintSlot(uint64(n))
	case uint64:
		return uintSlot(n)
	case float32:
		return floatSlot(float64(n))
	case float64:
		return floatSlot(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return intSlot(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatSlot(f)
	}
	return 0, false
}

func intSlot(i int64) (int, bool) {
	if i > math.MaxInt32 || i < -math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}

func uintSlot(u uint64) (int, bool) {
	if u > math.MaxInt32 {
		return 0, false
	}
	return int(u), true
}

func floatSlot(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}
