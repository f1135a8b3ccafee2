package patch

// Handle releases one listener registration.
// Release is idempotent and safe to call after the owner has been destroyed.
type Handle interface {
	Release()
}

// Listener is called with the id of the node that fired.
type Listener func(id string)

// listenerSet keeps listeners keyed by a monotonically increasing token so a
// Handle can remove exactly its own registration.
type listenerSet[T any] struct {
	next      uint64
	listeners map[uint64]func(T)
	order     []uint64
}

func (s *listenerSet[T]) add(fn func(T)) Handle {
	if s.listeners == nil {
		s.listeners = make(map[uint64]func(T))
	}
	s.next++
	key := s.next
	s.listeners[key] = fn
	s.order = append(s.order, key)
	return &listenerHandle[T]{set: s, key: key}
}

func (s *listenerSet[T]) remove(key uint64) {
	if _, ok := s.listeners[key]; !ok {
		return
	}
	delete(s.listeners, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// fire calls every listener registered at the time of the call, in
// registration order. Listeners released during dispatch are skipped.
func (s *listenerSet[T]) fire(v T) {
	keys := append([]uint64(nil), s.order...)
	for _, k := range keys {
		if fn, ok := s.listeners[k]; ok {
			fn(v)
		}
	}
}

func (s *listenerSet[T]) len() int { return len(s.listeners) }

func (s *listenerSet[T]) reset() {
	s.listeners = nil
	s.order = nil
}

type listenerHandle[T any] struct {
	set *listenerSet[T]
	key uint64
}

func (h *listenerHandle[T]) Release() {
	if h.set == nil {
		return
	}
	h.set.remove(h.key)
	h.set = nil
}
