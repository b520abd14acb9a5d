package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/construction"
	"github.com/talgya/mini-colony/internal/economy"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/pathpool"
)

func TestObserveTickConvertsCumulativeCounters(t *testing.T) {
	c := New()

	c.ObserveTick(engine.TickReport{
		Tick:         1,
		Duration:     time.Millisecond,
		Commands:     2,
		States:       map[agents.State]int{agents.StateIdle: 3, agents.StateMoving: 1},
		Stock:        economy.Stockpile{Minerals: 30},
		Pool:         pathpool.Stats{Created: 2, InFlight: 1, Pooled: 1},
		Agents:       agents.Stats{PathRequests: 4, PathFailures: 2, PathPanics: 1},
		Construction: construction.Stats{Placed: 1},
	})
	c.ObserveTick(engine.TickReport{
		Tick:         2,
		Pool:         pathpool.Stats{Created: 3, Reused: 1},
		Agents:       agents.Stats{PathRequests: 6, PathFailures: 2, PathPanics: 1},
		Construction: construction.Stats{Placed: 2, Completed: 1},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commands))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.lastTick))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.pathRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pathRequests.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pathRequests.WithLabelValues("panic")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.routes.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.construction.WithLabelValues("placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.construction.WithLabelValues("completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.agentStates.WithLabelValues("idle")))
}

func TestAddDeltaAfterReset(t *testing.T) {
	c := New()
	c.ObserveTick(engine.TickReport{Construction: construction.Stats{Placed: 10}})
	c.ObserveTick(engine.TickReport{Construction: construction.Stats{Placed: 3}})
	assert.Equal(t, 13.0, testutil.ToFloat64(c.construction.WithLabelValues("placed")))
}

func TestRegistryGathers(t *testing.T) {
	c := New()
	c.ObserveTick(engine.TickReport{Tick: 1})
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["colony_engine_ticks_total"])
	assert.True(t, names["colony_agents_by_state"])
	assert.True(t, names["go_goroutines"])
}
