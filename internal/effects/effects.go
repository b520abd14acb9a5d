// Package effects carries one-way notifications from the simulation to the
// presentation layer. The simulation never reads its own effects back.
package effects

import (
	"encoding/json"

	"github.com/talgya/mini-colony/internal/world"
)

// Kind tags an effect.
type Kind uint8

const (
	KindGridUpdate Kind = iota
	KindAudio
	KindFX
)

// String returns the wire name of k.
func (k Kind) String() string {
	switch k {
	case KindGridUpdate:
		return "GRID_UPDATE"
	case KindAudio:
		return "AUDIO"
	case KindFX:
		return "FX"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes k by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Audio cues.
const (
	CueBuildStart    = "build_start"
	CueBuildComplete = "build_complete"
	CueBulldoze      = "bulldoze"
	CueMine          = "mine"
	CueRehabilitate  = "rehabilitate"
)

// Visual effect kinds.
const (
	FXMine        = "mine"
	FXOreDepleted = "ore_depleted"
)

// Effect is one pending presentation side effect.
type Effect struct {
	Kind  Kind         `json:"kind"`
	Tiles []world.Tile `json:"tiles,omitempty"` // GRID_UPDATE: changed tiles
	Cue   string       `json:"cue,omitempty"`   // AUDIO
	FX    string       `json:"fx,omitempty"`    // FX kind
	Index int          `json:"index,omitempty"` // FX cell
}

// Queue accumulates effects during a tick. It is owned by the simulation
// goroutine.
type Queue struct {
	pending []Effect
}

// Push appends an effect.
func (q *Queue) Push(e Effect) {
	q.pending = append(q.pending, e)
}

// GridUpdate queues a GRID_UPDATE for the given tiles. Empty updates are
// dropped.
func (q *Queue) GridUpdate(tiles []world.Tile) {
	if len(tiles) == 0 {
		return
	}
	q.Push(Effect{Kind: KindGridUpdate, Tiles: tiles})
}

// Audio queues an AUDIO cue.
func (q *Queue) Audio(cue string) {
	q.Push(Effect{Kind: KindAudio, Cue: cue})
}

// FX queues a visual effect at a cell.
func (q *Queue) FX(kind string, index int) {
	q.Push(Effect{Kind: KindFX, FX: kind, Index: index})
}

// Len returns the number of pending effects.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Drain returns every pending effect and empties the queue.
func (q *Queue) Drain() []Effect {
	out := q.pending
	q.pending = nil
	return out
}

// Sink consumes the effects of a finished tick.
type Sink interface {
	Publish(tick uint64, batch []Effect)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tick uint64, batch []Effect)

// Publish calls f.
func (f SinkFunc) Publish(tick uint64, batch []Effect) { f(tick, batch) }

// Fanout publishes to every sink in order.
type Fanout []Sink

// Publish forwards batch to each sink.
func (fs Fanout) Publish(tick uint64, batch []Effect) {
	for _, s := range fs {
		s.Publish(tick, batch)
	}
}
