package widget

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
)

// ErrUnknownKind is returned for kind names nothing registered.
var ErrUnknownKind = errors.New("unknown widget kind")

// Registry maps kind names to their definitions.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Default returns a registry holding every built-in kind.
func Default() *Registry {
	r := NewRegistry()
	for _, k := range []Kind{Slider(), Number(), Toggle(), Message(), Button()} {
		r.Register(k)
	}
	return r
}

// Register adds a kind. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name()]; exists {
		panic(fmt.Sprintf("widget registry: duplicate kind %q", k.Name()))
	}
	r.kinds[k.Name()] = k
}

// Get returns the kind registered under name.
func (r *Registry) Get(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Names returns all registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds a node of the named kind. A non-nil state overrides the
// kind's initial state after validation.
func (r *Registry) New(id, kind string, state patch.State) (*patch.Node, error) {
	k, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	if !k.Stateful() {
		if err := k.Validate(state); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		return patch.NewStatelessNode(id, kind), nil
	}
	if state == nil {
		state = k.Initial()
	} else if err := k.Validate(state); err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}
	return patch.NewNode(id, kind, state), nil
}
