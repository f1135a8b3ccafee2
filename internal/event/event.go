package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
)

// Kind names what an outlet emission carries.
type Kind string

const (
	KindAggregate Kind = "aggregate"
	KindRecalled  Kind = "recalled"
	KindStored    Kind = "stored"
)

// Event is one value sent out of a preset engine's outlet.
type Event struct {
	ID        string          `json:"id"`
	Preset    string          `json:"preset"`
	Outlet    int             `json:"outlet"`
	Kind      Kind            `json:"kind"`
	Slot      *int            `json:"slot,omitempty"`
	Aggregate preset.Snapshot `json:"aggregate"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// New wraps an outlet value. It returns nil for outlets that never carry values.
func New(presetID string, port preset.Port, value interface{}) *Event {
	ev := &Event{
		ID:        uuid.New().String(),
		Preset:    presetID,
		Outlet:    int(port),
		EmittedAt: time.Now(),
	}
	switch port {
	case preset.PortAggregate:
		agg, _ := value.(preset.Snapshot)
		if agg == nil {
			agg = preset.Snapshot{}
		}
		ev.Kind = KindAggregate
		ev.Aggregate = agg
	case preset.PortRecalled, preset.PortStored:
		slot, ok := value.(int)
		if !ok {
			return nil
		}
		ev.Kind = KindRecalled
		if port == preset.PortStored {
			ev.Kind = KindStored
		}
		ev.Slot = &slot
	default:
		return nil
	}
	return ev
}

// Log is a bounded ring of the most recent events.
type Log struct {
	buf  []*Event
	next int
	full bool
}

// NewLog keeps at most size events.
func NewLog(size int) *Log {
	if size <= 0 {
		size = 1
	}
	return &Log{buf: make([]*Event, size)}
}

// Append records ev, evicting the oldest when full.
func (l *Log) Append(ev *Event) {
	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

// Last returns up to n events, oldest first. n <= 0 returns all.
func (l *Log) Last(n int) []*Event {
	var all []*Event
	if l.full {
		all = append(all, l.buf[l.next:]...)
	}
	all = append(all, l.buf[:l.next]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}
