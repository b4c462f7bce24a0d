package events

import (
	"sync"
	"time"
)

// RunRecorded is emitted after a run row is stored.
type RunRecorded struct {
	RunID           int64     `json:"runId"`
	PlayerID        string    `json:"playerId"`
	Handle          string    `json:"handle,omitempty"`
	GameID          string    `json:"gameId"`
	NormalizedScore int       `json:"normalizedScore"`
	RawValue        float64   `json:"rawValue"`
	RawUnit         string    `json:"rawUnit"`
	Difficulty      string    `json:"difficulty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Bus struct {
	Runs chan RunRecorded

	mu     sync.RWMutex
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		Runs: make(chan RunRecorded, 64),
	}
}

// PublishRun queues ev without blocking. It reports false when the buffer is full
// and the event was dropped.
func (b *Bus) PublishRun(ev RunRecorded) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.Runs <- ev:
		return true
	default:
		return false
	}
}

// Close closes Runs so consumers ranging over it return. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.Runs)
	}
}
