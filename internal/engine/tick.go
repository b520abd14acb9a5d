// Package engine provides the fixed-timestep simulation loop and the
// orchestrator that runs every subsystem once per tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Engine drives the simulation forward at a fixed rate.
type Engine struct {
	Tick     uint64 // Last tick run (monotonic, never resets)
	TickRate int    // Ticks per simulated second

	// Callbacks for each cadence, populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnSecond func(tick uint64) // Every TickRate ticks
	OnMinute func(tick uint64) // Every 60*TickRate ticks

	mu    sync.Mutex
	speed float64 // 1.0 = real time, 0 = paused
}

// NewEngine creates an engine running tickRate ticks per simulated second
// at real-time speed.
func NewEngine(tickRate int) *Engine {
	if tickRate <= 0 {
		tickRate = 10
	}
	return &Engine{TickRate: tickRate, speed: 1}
}

// Dt returns the simulated seconds covered by one tick.
func (e *Engine) Dt() float64 {
	return 1 / float64(e.TickRate)
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or less pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
}

// Run advances the simulation until ctx is cancelled. A tick in progress
// always completes.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick, "tick_rate", e.TickRate, "speed", e.Speed())
	defer func() { slog.Info("simulation engine stopped", "tick", e.Tick) }()

	interval := time.Second / time.Duration(e.TickRate)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			timer.Reset(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		wait := time.Duration(float64(interval)/speed) - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// Step advances the simulation by exactly one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	perSecond := uint64(e.TickRate)
	if e.Tick%perSecond == 0 && e.OnSecond != nil {
		e.OnSecond(e.Tick)
	}
	if e.Tick%(60*perSecond) == 0 && e.OnMinute != nil {
		e.OnMinute(e.Tick)
	}
}

// SimTime renders the simulated time elapsed at tick, e.g. "day 1 02:05:09".
func SimTime(tick uint64, tickRate int) string {
	if tickRate <= 0 {
		tickRate = 1
	}
	secs := tick / uint64(tickRate)
	days := secs/86400 + 1
	return fmt.Sprintf("day %d %02d:%02d:%02d", days, secs/3600%24, secs/60%60, secs%60)
}
