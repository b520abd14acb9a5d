// Package jobs tracks the colony's work orders: construction sites, ore
// designated for mining and land queued for rehabilitation.
package jobs

import (
	"sort"

	"github.com/google/uuid"
)

// Type enumerates job kinds.
type Type uint8

const (
	TypeBuild Type = iota
	TypeMine
	TypeRehabilitate
)

// String returns the id prefix used for the job type.
func (t Type) String() string {
	switch t {
	case TypeBuild:
		return "build"
	case TypeMine:
		return "mine"
	case TypeRehabilitate:
		return "rehab"
	default:
		return "job"
	}
}

// Job is a unit of work targeting one grid cell.
type Job struct {
	ID       string  `json:"id" db:"id"`
	Type     Type    `json:"type" db:"type"`
	Target   int     `json:"target" db:"target"`
	Assignee *uint64 `json:"assignee,omitempty" db:"assignee"` // Agent currently claiming the job
	Priority int     `json:"priority" db:"priority"`
}

// Claimable reports whether agent may take j.
func (j *Job) Claimable(agent uint64) bool {
	return j.Assignee == nil || *j.Assignee == agent
}

// NewID returns a fresh job id such as "build_3f1c…".
func NewID(t Type) string {
	return t.String() + "_" + uuid.NewString()
}

// Board is the ordered job list. Higher priority first, then insertion order.
type Board struct {
	list []*Job
	byID map[string]*Job
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{byID: make(map[string]*Job)}
}

// Add creates and stores a job.
func (b *Board) Add(t Type, target, priority int) *Job {
	j := &Job{ID: NewID(t), Type: t, Target: target, Priority: priority}
	b.insert(j)
	return j
}

func (b *Board) insert(j *Job) {
	pos := sort.Search(len(b.list), func(i int) bool { return b.list[i].Priority < j.Priority })
	b.list = append(b.list, nil)
	copy(b.list[pos+1:], b.list[pos:])
	b.list[pos] = j
	b.byID[j.ID] = j
}

// Get returns the job with the given id, or nil.
func (b *Board) Get(id string) *Job {
	return b.byID[id]
}

// Remove deletes a job. Removing an unknown id is a no-op.
func (b *Board) Remove(id string) bool {
	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i, j := range b.list {
		if j.ID == id {
			b.list = append(b.list[:i], b.list[i+1:]...)
			break
		}
	}
	return true
}

// RemoveWhere deletes every job matching pred and returns how many went.
func (b *Board) RemoveWhere(pred func(*Job) bool) int {
	kept := b.list[:0]
	removed := 0
	for _, j := range b.list {
		if pred(j) {
			delete(b.byID, j.ID)
			removed++
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(b.list); i++ {
		b.list[i] = nil
	}
	b.list = kept
	return removed
}

// RemoveTargeting deletes jobs of type t whose target is in cells.
func (b *Board) RemoveTargeting(t Type, cells []int) int {
	return b.RemoveWhere(func(j *Job) bool {
		if j.Type != t {
			return false
		}
		for _, c := range cells {
			if j.Target == c {
				return true
			}
		}
		return false
	})
}

// FirstClaimable returns the first job of type t that agent may take.
func (b *Board) FirstClaimable(t Type, agent uint64) *Job {
	for _, j := range b.list {
		if j.Type == t && j.Claimable(agent) {
			return j
		}
	}
	return nil
}

// Find returns the first job of type t targeting cell.
func (b *Board) Find(t Type, cell int) *Job {
	for _, j := range b.list {
		if j.Type == t && j.Target == cell {
			return j
		}
	}
	return nil
}

// Claim assigns j to agent.
func (b *Board) Claim(j *Job, agent uint64) {
	a := agent
	j.Assignee = &a
}

// Unclaim clears j's assignee if agent holds it.
func (b *Board) Unclaim(j *Job, agent uint64) {
	if j.Assignee != nil && *j.Assignee == agent {
		j.Assignee = nil
	}
}

// Len returns the number of jobs.
func (b *Board) Len() int {
	return len(b.list)
}

// All returns copies of every job in board order.
func (b *Board) All() []Job {
	out := make([]Job, 0, len(b.list))
	for _, j := range b.list {
		c := *j
		if j.Assignee != nil {
			a := *j.Assignee
			c.Assignee = &a
		}
		out = append(out, c)
	}
	return out
}

// Restore replaces the board contents, e.g. after loading from disk.
func (b *Board) Restore(list []Job) {
	b.list = b.list[:0]
	b.byID = make(map[string]*Job, len(list))
	for i := range list {
		j := list[i]
		b.insert(&j)
	}
}
