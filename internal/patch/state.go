package patch

// State is the opaque, string-keyed state blob of a node.
type State map[string]interface{}

// Clone returns a deep copy of s. Nested maps and slices are copied so that
// mutating the clone never reaches the original and vice versa.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case State:
		return t.Clone()
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []float64:
		return append([]float64(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	default:
		// Scalars are values already.
		return v
	}
}

// AsState converts a decoded JSON/YAML value into a State.
// It reports false when v is not a string-keyed mapping.
func AsState(v interface{}) (State, bool) {
	switch t := v.(type) {
	case State:
		return t, true
	case map[string]interface{}:
		return State(t), true
	}
	return nil, false
}
