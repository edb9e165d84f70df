package hub

import "context"

// Sink receives events for fan-out to connected clients
type Sink interface {
	Broadcast(event interface{})
}

// Forward drains events into every sink until ctx is done or events closes
func Forward[T any](ctx context.Context, events <-chan T, sinks ...Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			for _, s := range sinks {
				s.Broadcast(ev)
			}
		}
	}
}
