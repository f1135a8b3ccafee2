package widget

import (
	"fmt"

	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
)

// Kind is the interface all widget kinds must satisfy.
type Kind interface {
	// Name returns the string key this kind is registered under.
	Name() string
	// Stateful reports whether nodes of this kind carry state.
	Stateful() bool
	// Initial returns the state of a freshly created node.
	Initial() patch.State
	// Validate checks a state blob before it is applied from config.
	Validate(s patch.State) error
}

// numeric is a kind whose state is {"value": number}.
type numeric struct {
	name     string
	min, max float64
}

func (k numeric) Name() string   { return k.name }
func (k numeric) Stateful() bool { return true }

func (k numeric) Initial() patch.State {
	return patch.State{"value": k.min}
}

func (k numeric) Validate(s patch.State) error {
	v, ok := s["value"]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		if i, isInt := v.(int); isInt {
			f, ok = float64(i), true
		}
	}
	if !ok {
		return fmt.Errorf("%s: value must be a number, got %T", k.name, v)
	}
	if k.max > k.min && (f < k.min || f > k.max) {
		return fmt.Errorf("%s: value %v out of range [%v, %v]", k.name, f, k.min, k.max)
	}
	return nil
}

// Slider holds a value in [0, 1].
func Slider() Kind { return numeric{name: "slider", min: 0, max: 1} }

// Number holds an unbounded value.
func Number() Kind { return numeric{name: "number"} }

type toggle struct{}

func Toggle() Kind { return toggle{} }

func (toggle) Name() string         { return "toggle" }
func (toggle) Stateful() bool       { return true }
func (toggle) Initial() patch.State { return patch.State{"on": false} }

func (toggle) Validate(s patch.State) error {
	if v, ok := s["on"]; ok {
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("toggle: on must be a bool, got %T", v)
		}
	}
	return nil
}

type message struct{}

// Message holds free text.
func Message() Kind { return message{} }

func (message) Name() string         { return "message" }
func (message) Stateful() bool       { return true }
func (message) Initial() patch.State { return patch.State{"text": ""} }

func (message) Validate(s patch.State) error {
	if v, ok := s["text"]; ok {
		if _, isStr := v.(string); !isStr {
			return fmt.Errorf("message: text must be a string, got %T", v)
		}
	}
	return nil
}

type button struct{}

// Button has no state; presets skip it.
func Button() Kind { return button{} }

func (button) Name() string         { return "button" }
func (button) Stateful() bool       { return false }
func (button) Initial() patch.State { return nil }

func (button) Validate(s patch.State) error {
	if len(s) > 0 {
		return fmt.Errorf("button: has no state")
	}
	return nil
}
