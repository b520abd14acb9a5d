// Package commands is the inbound instruction queue. External producers
// (HTTP handlers, scripts) submit commands at any time; the simulation drains
// the whole queue once per tick.
package commands

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/mini-colony/internal/world"
)

// Type tags a command.
type Type string

const (
	TypePlaceBuilding Type = "PLACE_BUILDING"
	TypeBulldoze      Type = "BULLDOZE"
	TypeSpeedUp       Type = "SPEED_UP"
	TypeRehabilitate  Type = "REHABILITATE"
	TypeDesignateMine Type = "DESIGNATE_MINE"
	TypeMoveAgent     Type = "MOVE_AGENT"
)

// Command is one externally submitted instruction. Only the fields relevant
// to Type are set.
type Command struct {
	Type     Type               `json:"type"`
	Index    int                `json:"index"`
	Building world.BuildingType `json:"building,omitempty"`
	Instant  bool               `json:"instant,omitempty"`
	AgentID  uint64             `json:"agent_id,omitempty"`
}

// ErrUnknownType is returned for commands no handler understands.
var ErrUnknownType = errors.New("unknown command type")

//go:embed command.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("command.schema.json", schemaJSON)

// Decode parses and validates one JSON command.
func Decode(raw []byte) (Command, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return c, nil
}

// DecodeBatch parses a JSON array of commands, or a single command object.
func DecodeBatch(raw []byte) ([]Command, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty command body")
	}
	if trimmed[0] != '[' {
		c, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []Command{c}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	out := make([]Command, 0, len(items))
	for i, item := range items {
		c, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Queue buffers submitted commands until the next tick drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Command
}

// Submit appends commands to the queue.
func (q *Queue) Submit(cmds ...Command) {
	q.mu.Lock()
	q.pending = append(q.pending, cmds...)
	q.mu.Unlock()
}

// Drain returns every queued command and clears the queue. Commands
// submitted after Drain returns wait for the following tick.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
