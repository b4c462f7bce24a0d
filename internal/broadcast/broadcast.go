package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"arcade/internal/events"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

// RunSink receives every run event the broadcaster sees.
type RunSink interface {
	PublishRun(ev events.RunRecorded)
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
	sinks   []RunSink
	done    chan struct{}
}

// NewBroadcaster drains bus.Runs, fanning each event out to SSE subscribers and sinks.
// The drain stops once the bus is closed.
func NewBroadcaster(bus *events.Bus, sinks ...RunSink) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
		sinks:   sinks,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for ev := range bus.Runs {
			b.handleRun(ev)
		}
	}()
	return b
}

// Done is closed after the bus is closed and every queued event is handled.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

func (b *Broadcaster) handleRun(ev events.RunRecorded) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Broadcast] Marshal error: %v\n", err)
		return
	}
	b.Broadcast("run", string(data))
	for _, s := range b.sinks {
		s.PublishRun(ev)
	}
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) Broadcast(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}
