// Package bus implements the action dispatch bus: a named, broadcast,
// fire-and-forget publish/subscribe channel connecting assistant tool
// handlers to the editing session, with an SSE endpoint for browsers.
package bus

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Well-known event names. Tool handlers publish the first group; the editing
// session publishes the second. Feature payloads (variation lists, image
// sets) use their own names and are opaque to the engine.
const (
	DraftUpdate      = "draft.update"
	DraftAppend      = "draft.append"
	EditApply        = "edit.apply"
	EditConfirm      = "edit.confirm"
	EditDiscard      = "edit.discard"
	AssistantMessage = "assistant.message"

	DraftUpdated  = "draft.updated"
	EditPreview   = "edit.preview"
	EditFrame     = "edit.frame"
	EditConfirmed = "edit.confirmed"
	EditDiscarded = "edit.discarded"
)

// Event is one message on the bus.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Subscription is one subscriber's ordered event stream. Events arrive in
// emission order; a full buffer drops rather than blocking publishers.
type Subscription struct {
	C     chan Event
	names map[string]struct{}
}

func (s *Subscription) wants(name string) bool {
	if len(s.names) == 0 {
		return true
	}
	_, ok := s.names[name]
	return ok
}

type subRequest struct {
	sub  *Subscription
	done chan struct{}
}

// Bus manages subscribers and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber set. Public methods communicate with this loop through channels,
// so no mutexes are required.
type Bus struct {
	subscribeCh   chan subRequest
	unsubscribeCh chan *Subscription
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates a bus and starts its event loop.
func New() *Bus {
	b := &Bus{
		subscribeCh:   make(chan subRequest),
		unsubscribeCh: make(chan *Subscription),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.stopped)

	subs := make(map[*Subscription]struct{})

	broadcast := func(ev Event) {
		for s := range subs {
			if !s.wants(ev.Name) {
				continue
			}
			select {
			case s.C <- ev:
			default:
				// Subscriber buffer full; drop to keep the loop live.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for s := range subs {
				close(s.C)
			}
			return

		case req := <-b.subscribeCh:
			subs[req.sub] = struct{}{}
			close(req.done)

		case s := <-b.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.C)
			}

		case ev := <-b.publishCh:
			broadcast(ev)

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a subscriber. With no names it receives every event;
// otherwise only the named ones. Registration completes before Subscribe
// returns, so events published afterwards are guaranteed to be observed.
func (b *Bus) Subscribe(names ...string) *Subscription {
	sub := &Subscription{C: make(chan Event, 64)}
	if len(names) > 0 {
		sub.names = make(map[string]struct{}, len(names))
		for _, n := range names {
			sub.names[n] = struct{}{}
		}
	}

	if b.closed.Load() {
		close(sub.C)
		return sub
	}

	done := make(chan struct{})
	select {
	case b.subscribeCh <- subRequest{sub: sub, done: done}:
		<-done
	case <-b.stopped:
		close(sub.C)
	}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- sub:
	case <-b.stopped:
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an event to all current subscribers. Fire-and-forget:
// publishing to a closed bus is a no-op.
func (b *Bus) Publish(name string, payload any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- Event{Name: name, Payload: payload}:
	case <-b.stopped:
	}
}

// ServeHTTP streams bus events to the client as Server-Sent Events.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
			flusher.Flush()
		}
	}
}
