// Package pathpool recycles route buffers so the per-tick movement loop does
// not allocate a fresh slice for every path request.
package pathpool

// Route is an ordered list of grid cell indices, consumed from the front.
// A Route is owned by at most one holder at a time; ownership ends with
// Pool.Release.
type Route struct {
	cells []int
	head  int
	id    uint64
	free  bool
}

// ID identifies the underlying buffer. It survives recycling.
func (r *Route) ID() uint64 { return r.id }

// Len returns the number of waypoints not yet consumed.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.cells) - r.head
}

// Push appends a waypoint.
func (r *Route) Push(cell int) {
	r.cells = append(r.cells, cell)
}

// Peek returns the next waypoint. ok is false when the route is exhausted.
func (r *Route) Peek() (cell int, ok bool) {
	if r.Len() == 0 {
		return 0, false
	}
	return r.cells[r.head], true
}

// Pop consumes the next waypoint.
func (r *Route) Pop() {
	if r.Len() > 0 {
		r.head++
	}
}

// Last returns the final waypoint of the route.
func (r *Route) Last() (cell int, ok bool) {
	if r.Len() == 0 {
		return 0, false
	}
	return r.cells[len(r.cells)-1], true
}

// Cells returns the remaining waypoints. The slice aliases the buffer and is
// only valid until the route is modified or released.
func (r *Route) Cells() []int {
	if r == nil {
		return nil
	}
	return r.cells[r.head:]
}

// Reverse reverses the remaining waypoints in place. Searches that walk a
// parent chain back from the goal build routes backwards.
func (r *Route) Reverse() {
	c := r.cells[r.head:]
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// Reset empties the route while keeping its capacity.
func (r *Route) Reset() {
	r.cells = r.cells[:0]
	r.head = 0
}

// Stats is a point-in-time accounting of the pool.
type Stats struct {
	Created   uint64 `json:"created"`
	Reused    uint64 `json:"reused"`
	Pooled    int    `json:"pooled"`
	Discarded uint64 `json:"discarded"`
	InFlight  uint64 `json:"in_flight"`
}

// Pool is a bounded free-list of routes. It is not safe for concurrent use;
// the simulation owns it from a single goroutine.
type Pool struct {
	free     []*Route
	capacity int
	initCap  int

	nextID    uint64
	created   uint64
	reused    uint64
	discarded uint64
}

// DefaultRouteCap is the initial capacity of freshly allocated buffers.
const DefaultRouteCap = 64

// New creates a pool retaining at most capacity idle routes.
func New(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{
		free:     make([]*Route, 0, capacity),
		capacity: capacity,
		initCap:  DefaultRouteCap,
	}
}

// Acquire returns an empty route, recycled when possible.
func (p *Pool) Acquire() *Route {
	if n := len(p.free); n > 0 {
		r := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		r.free = false
		p.reused++
		return r
	}
	p.created++
	p.nextID++
	return &Route{
		cells: make([]int, 0, p.initCap),
		id:    p.nextID,
	}
}

// Release returns r to the pool. Releasing nil or an already released route
// is a no-op, so a buffer can never sit in the free-list twice.
func (p *Pool) Release(r *Route) {
	if r == nil || r.free {
		return
	}
	r.Reset()
	r.free = true
	if len(p.free) < p.capacity {
		p.free = append(p.free, r)
		return
	}
	p.discarded++
}

// Capacity returns the maximum number of idle routes retained.
func (p *Pool) Capacity() int { return p.capacity }

// Stats reports buffer accounting. InFlight is every buffer ever created that
// is neither pooled nor discarded.
func (p *Pool) Stats() Stats {
	pooled := len(p.free)
	return Stats{
		Created:   p.created,
		Reused:    p.reused,
		Pooled:    pooled,
		Discarded: p.discarded,
		InFlight:  p.created - uint64(pooled) - p.discarded,
	}
}
