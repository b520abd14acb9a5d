// Package metrics exposes simulation health as Prometheus collectors on a
// private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/engine"
)

const namespace = "colony"

// Collector turns tick reports into metrics. Cumulative subsystem counters
// are converted to Prometheus counters by adding the delta since the last
// report.
type Collector struct {
	registry *prometheus.Registry

	tickDuration prometheus.Histogram
	ticks        prometheus.Counter
	commands     prometheus.Counter
	effects      prometheus.Counter
	lastTick     prometheus.Gauge

	agentStates *prometheus.GaugeVec
	jobs        prometheus.Gauge
	stock       *prometheus.GaugeVec

	pathRequests *prometheus.CounterVec
	routes       *prometheus.CounterVec
	routesHeld   *prometheus.GaugeVec

	construction *prometheus.CounterVec
	minerals     prometheus.Counter

	prev    engine.TickReport
	hasPrev bool
}

// New creates a collector with its own registry, including Go runtime and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent running one simulation tick",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "ticks_total",
			Help: "Ticks processed",
		}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "commands_total",
			Help: "Commands drained from the inbound queue",
		}),
		effects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "effects_total",
			Help: "Effects published to the presentation layer",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "tick",
			Help: "Most recent tick number",
		}),
		agentStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "agents", Name: "by_state",
			Help: "Agents per behavior state",
		}, []string{"state"}),
		jobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "open",
			Help: "Jobs on the board",
		}),
		stock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "economy", Name: "stock",
			Help: "Colony stockpile by resource",
		}, []string{"resource"}),
		pathRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agents", Name: "path_requests_total",
			Help: "Pathfinder calls by outcome",
		}, []string{"outcome"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pathpool", Name: "routes_total",
			Help: "Route buffer events: created, reused, discarded",
		}, []string{"event"}),
		routesHeld: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pathpool", Name: "routes",
			Help: "Route buffers by location: pooled or in_flight",
		}, []string{"where"}),
		construction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "construction", Name: "events_total",
			Help: "Construction subsystem events",
		}, []string{"event"}),
		minerals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agents", Name: "minerals_mined_total",
			Help: "Minerals yielded by mining",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.tickDuration, c.ticks, c.commands, c.effects, c.lastTick,
		c.agentStates, c.jobs, c.stock,
		c.pathRequests, c.routes, c.routesHeld,
		c.construction, c.minerals,
	)
	return c
}

// Registry returns the registry to expose over HTTP.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveTick records one tick report. Called from the simulation
// goroutine only.
func (c *Collector) ObserveTick(r engine.TickReport) {
	c.tickDuration.Observe(r.Duration.Seconds())
	c.ticks.Inc()
	c.commands.Add(float64(r.Commands))
	c.effects.Add(float64(r.Effects))
	c.lastTick.Set(float64(r.Tick))
	c.jobs.Set(float64(r.Jobs))

	for _, st := range []agents.State{agents.StateIdle, agents.StateMoving, agents.StateSleeping, agents.StateEating, agents.StateWorking} {
		c.agentStates.WithLabelValues(st.String()).Set(float64(r.States[st]))
	}
	c.stock.WithLabelValues("minerals").Set(float64(r.Stock.Minerals))
	c.stock.WithLabelValues("credits").Set(float64(r.Stock.Credits))
	c.stock.WithLabelValues("crystals").Set(float64(r.Stock.Crystals))
	c.routesHeld.WithLabelValues("pooled").Set(float64(r.Pool.Pooled))
	c.routesHeld.WithLabelValues("in_flight").Set(float64(r.Pool.InFlight))

	p := c.prev
	if !c.hasPrev {
		p = engine.TickReport{}
	}
	a, pa := r.Agents, p.Agents
	failed := a.PathFailures - a.PathPanics
	prevFailed := pa.PathFailures - pa.PathPanics
	addDelta(c.pathRequests.WithLabelValues("ok"), a.PathRequests-a.PathFailures, pa.PathRequests-pa.PathFailures)
	addDelta(c.pathRequests.WithLabelValues("failed"), failed, prevFailed)
	addDelta(c.pathRequests.WithLabelValues("panic"), a.PathPanics, pa.PathPanics)
	addDelta(c.minerals, a.MineralsMined, pa.MineralsMined)

	addDelta(c.routes.WithLabelValues("created"), r.Pool.Created, p.Pool.Created)
	addDelta(c.routes.WithLabelValues("reused"), r.Pool.Reused, p.Pool.Reused)
	addDelta(c.routes.WithLabelValues("discarded"), r.Pool.Discarded, p.Pool.Discarded)

	cs, pc := r.Construction, p.Construction
	addDelta(c.construction.WithLabelValues("placed"), cs.Placed, pc.Placed)
	addDelta(c.construction.WithLabelValues("completed"), cs.Completed, pc.Completed)
	addDelta(c.construction.WithLabelValues("bulldozed"), cs.Bulldozed, pc.Bulldozed)
	addDelta(c.construction.WithLabelValues("sped_up"), cs.SpedUp, pc.SpedUp)
	addDelta(c.construction.WithLabelValues("rehabilitated"), cs.Rehabilitated, pc.Rehabilitated)
	addDelta(c.construction.WithLabelValues("dropped"), cs.Dropped, pc.Dropped)
	addDelta(c.construction.WithLabelValues("sweep_repairs"), cs.SweepRepairs, pc.SweepRepairs)

	c.prev = r
	c.hasPrev = true
}

// addDelta adds now-prev to a counter. Counters never go backwards, so a
// reset source (e.g. after a restore) only contributes its new total.
func addDelta(c prometheus.Counter, now, prev uint64) {
	if now >= prev {
		c.Add(float64(now - prev))
		return
	}
	c.Add(float64(now))
}
