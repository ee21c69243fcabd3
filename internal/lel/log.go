package lel

import (
	"fmt"

	"github.com/nvandessel/trace-semantics/internal/models"
)

// LayeredEventLog is an experiment reference, its specification, the
// ordered event stream and its indexes. A log is immutable once built; a
// changed view requires constructing a new log.
type LayeredEventLog struct {
	ref    models.ExperimentRef
	spec   models.ExperimentSpec
	events []TraceEvent
	idx    *Indexes
}

// ExperimentRef returns the experiment this log belongs to.
func (l *LayeredEventLog) ExperimentRef() models.ExperimentRef { return l.ref }

// Spec returns the experiment specification.
func (l *LayeredEventLog) Spec() *models.ExperimentSpec { return &l.spec }

// Events returns the event stream in append order. The slice must not be
// modified.
func (l *LayeredEventLog) Events() []TraceEvent { return l.events }

// Len returns the number of events.
func (l *LayeredEventLog) Len() int { return len(l.events) }

// At returns the event at position i.
func (l *LayeredEventLog) At(i int) *TraceEvent { return &l.events[i] }

// Indexes returns the secondary indexes.
func (l *LayeredEventLog) Indexes() *Indexes { return l.idx }

// Lookup returns the event with the given id.
func (l *LayeredEventLog) Lookup(id models.EventID) (*TraceEvent, bool) {
	pos, ok := l.idx.Position(id)
	if !ok {
		return nil, false
	}
	return &l.events[pos], true
}

// Positions resolves ids to log positions, dropping ids that are not in the
// log.
func (l *LayeredEventLog) Positions(ids []models.EventID) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if pos, ok := l.idx.Position(id); ok {
			out = append(out, pos)
		}
	}
	return out
}

// Builder assembles a log through sequential appends. It is not safe for
// concurrent use; independent builders share nothing unless they are given
// the same allocator.
type Builder struct {
	ref    models.ExperimentRef
	spec   models.ExperimentSpec
	alloc  *IDAllocator
	events []TraceEvent
	idx    *Indexes
	built  bool
}

// Option configures a Builder.
type Option func(*builderOptions)

type builderOptions struct {
	alloc    *IDAllocator
	capacity int
}

// WithAllocator makes the builder issue ids from a.
func WithAllocator(a *IDAllocator) Option {
	return func(o *builderOptions) { o.alloc = a }
}

// WithCapacity preallocates room for n events.
func WithCapacity(n int) Option {
	return func(o *builderOptions) { o.capacity = n }
}

// NewBuilder starts a log for the given experiment and specification.
func NewBuilder(ref models.ExperimentRef, spec models.ExperimentSpec, opts ...Option) *Builder {
	o := builderOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.alloc == nil {
		o.alloc = NewIDAllocator()
	}
	return &Builder{
		ref:    ref,
		spec:   spec,
		alloc:  o.alloc,
		events: make([]TraceEvent, 0, o.capacity),
		idx:    newIndexes(o.capacity),
	}
}

// Extend starts a builder holding every event of l, with an allocator that
// issues ids above the largest id in l. The original log is untouched.
func Extend(l *LayeredEventLog, opts ...Option) *Builder {
	opts = append([]Option{WithCapacity(l.Len() + 1)}, opts...)
	b := NewBuilder(l.ref, l.spec, opts...)
	for i := range l.events {
		b.AppendEvent(l.events[i])
	}
	return b
}

// Append validates the draft, assigns it the next id and appends it.
// It panics if the draft lacks its layer, kind or temporal coordinate.
func (b *Builder) Append(d *EventDraft) models.EventID {
	b.checkOpen()
	d.checkRequired()
	e := d.finish(b.alloc.Next())
	b.push(e)
	return e.ID
}

// AppendEvent appends an event that already carries an id, such as one read
// back from the persisted form. It panics on a duplicate id.
func (b *Builder) AppendEvent(e TraceEvent) {
	b.checkOpen()
	if !e.Layer.Valid() || e.Kind == nil {
		panic(fmt.Sprintf("lel: event %d is missing its layer or kind", e.ID))
	}
	if !models.ValidKind(e.Kind) {
		panic(fmt.Sprintf("lel: event %d has unsupported kind %T", e.ID, e.Kind))
	}
	b.alloc.Observe(e.ID)
	b.push(e)
}

func (b *Builder) push(e TraceEvent) {
	if _, dup := b.idx.Position(e.ID); dup {
		panic(fmt.Sprintf("lel: duplicate event id %d", e.ID))
	}
	pos := len(b.events)
	b.events = append(b.events, e)
	b.idx.add(&b.events[pos], pos)
}

// Events returns the events appended so far. The slice must not be modified.
func (b *Builder) Events() []TraceEvent {
	return b.events
}

// Len returns the number of events appended so far.
func (b *Builder) Len() int {
	return len(b.events)
}

// Build finalizes the log. The builder must not be used afterwards.
func (b *Builder) Build() *LayeredEventLog {
	b.checkOpen()
	b.built = true
	return &LayeredEventLog{
		ref:    b.ref,
		spec:   b.spec,
		events: b.events,
		idx:    b.idx,
	}
}

func (b *Builder) checkOpen() {
	if b.built {
		panic("lel: builder used after Build")
	}
}
