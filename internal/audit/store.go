package audit

import "context"

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is what domain services depend on. Implementations must not block
// the caller on persistence.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Nop discards events; used when auditing is disabled and in tests.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
