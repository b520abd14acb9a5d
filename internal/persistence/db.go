// Package persistence provides SQLite-based colony state storage and
// compressed snapshot files.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-colony/internal/agents"
	"github.com/talgya/mini-colony/internal/engine"
	"github.com/talgya/mini-colony/internal/jobs"
	"github.com/talgya/mini-colony/internal/world"
)

// Metadata keys.
const (
	metaLastTick    = "last_tick"
	metaSeed        = "seed"
	metaWidth       = "width"
	metaHeight      = "height"
	metaNextAgentID = "next_agent_id"
	metaStock       = "stock"
	metaVersion     = "state_version"
)

// DB wraps a SQLite connection for colony state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		idx INTEGER PRIMARY KEY,
		building TEXT NOT NULL,
		overlay INTEGER NOT NULL,
		under_construction INTEGER NOT NULL,
		construction_left REAL NOT NULL,
		head INTEGER NOT NULL,
		rehab REAL NOT NULL,
		explored INTEGER NOT NULL,
		powered INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		x REAL NOT NULL,
		z REAL NOT NULL,
		state TEXT NOT NULL,
		intent TEXT NOT NULL,
		target INTEGER NOT NULL,
		energy REAL NOT NULL,
		hunger REAL NOT NULL,
		mood REAL NOT NULL,
		skill_construction REAL NOT NULL,
		skill_mining REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type INTEGER NOT NULL,
		target INTEGER NOT NULL,
		assignee INTEGER,
		priority INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_jobs_target ON jobs(target);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// agentRow is the flat table shape of an agent.
type agentRow struct {
	ID                uint64  `db:"id"`
	Name              string  `db:"name"`
	X                 float64 `db:"x"`
	Z                 float64 `db:"z"`
	State             string  `db:"state"`
	Intent            string  `db:"intent"`
	Target            int     `db:"target"`
	Energy            float64 `db:"energy"`
	Hunger            float64 `db:"hunger"`
	Mood              float64 `db:"mood"`
	SkillConstruction float64 `db:"skill_construction"`
	SkillMining       float64 `db:"skill_mining"`
}

// saveTiles writes every tile (full replace).
func saveTiles(tx *sqlx.Tx, tiles []world.Tile) error {
	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}
	stmt, err := tx.PrepareNamed(`INSERT INTO tiles
		(idx, building, overlay, under_construction, construction_left, head, rehab, explored, powered)
		VALUES (:idx, :building, :overlay, :under_construction, :construction_left, :head, :rehab, :explored, :powered)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range tiles {
		if _, err := stmt.Exec(&tiles[i]); err != nil {
			return fmt.Errorf("insert tile %d: %w", tiles[i].Index, err)
		}
	}
	return nil
}

// saveAgents writes all agents (full replace).
func saveAgents(tx *sqlx.Tx, agentList []agents.Agent) error {
	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, x, z, state, intent, target, energy, hunger, mood, skill_construction, skill_mining)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range agentList {
		_, err := stmt.Exec(
			uint64(a.ID), a.Name, a.X, a.Z,
			a.State.String(), a.Intent.String(), a.Target,
			a.Needs.Energy, a.Needs.Hunger, a.Needs.Mood,
			a.Skills.Construction, a.Skills.Mining,
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}
	return nil
}

// saveJobs writes the job board (full replace).
func saveJobs(tx *sqlx.Tx, list []jobs.Job) error {
	if _, err := tx.Exec("DELETE FROM jobs"); err != nil {
		return err
	}
	for i := range list {
		_, err := tx.NamedExec(`INSERT INTO jobs (id, type, target, assignee, priority)
			VALUES (:id, :type, :target, :assignee, :priority)`, &list[i])
		if err != nil {
			return fmt.Errorf("insert job %s: %w", list[i].ID, err)
		}
	}
	return nil
}

func saveMeta(tx *sqlx.Tx, key, value string) error {
	_, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// SaveEvents appends events newer than the newest stored one.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	var newest sql.NullInt64
	if err := db.conn.Get(&newest, "SELECT MAX(tick) FROM events"); err != nil {
		return fmt.Errorf("newest event: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		if newest.Valid && int64(e.Tick) <= newest.Int64 {
			continue
		}
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasWorldState reports whether a saved colony exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(metaLastTick)
	return err == nil
}

// SaveWorldState performs a full save of the colony in one transaction.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	if err := db.SaveState(sim.Export()); err != nil {
		return err
	}
	if err := db.SaveEvents(sim.RecentEvents(0)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// SaveState writes st in one transaction.
func (db *DB) SaveState(st engine.State) error {
	slog.Info("saving world state", "tick", st.Tick, "agents", len(st.Agents), "jobs", len(st.Jobs))

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveTiles(tx, st.Tiles); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}
	if err := saveAgents(tx, st.Agents); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := saveJobs(tx, st.Jobs); err != nil {
		return fmt.Errorf("save jobs: %w", err)
	}

	stock, err := json.Marshal(st.Stock)
	if err != nil {
		return fmt.Errorf("encode stock: %w", err)
	}
	meta := map[string]string{
		metaLastTick:    strconv.FormatUint(st.Tick, 10),
		metaSeed:        strconv.FormatUint(st.Seed, 10),
		metaWidth:       strconv.Itoa(st.Width),
		metaHeight:      strconv.Itoa(st.Height),
		metaNextAgentID: strconv.FormatUint(uint64(st.NextAgentID), 10),
		metaStock:       string(stock),
		metaVersion:     strconv.Itoa(st.Version),
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("world state saved")
	return nil
}

// LoadWorldState reads the saved colony.
func (db *DB) LoadWorldState() (engine.State, error) {
	var st engine.State

	meta, err := db.loadMeta()
	if err != nil {
		return st, err
	}
	if _, ok := meta[metaLastTick]; !ok {
		return st, errors.New("load world state: no saved state")
	}
	if st.Tick, err = strconv.ParseUint(meta[metaLastTick], 10, 64); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaLastTick, err)
	}
	if st.Seed, err = strconv.ParseUint(meta[metaSeed], 10, 64); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaSeed, err)
	}
	if st.Width, err = strconv.Atoi(meta[metaWidth]); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaWidth, err)
	}
	if st.Height, err = strconv.Atoi(meta[metaHeight]); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaHeight, err)
	}
	if st.Version, err = strconv.Atoi(meta[metaVersion]); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaVersion, err)
	}
	next, err := strconv.ParseUint(meta[metaNextAgentID], 10, 64)
	if err != nil {
		return st, fmt.Errorf("parse %s: %w", metaNextAgentID, err)
	}
	st.NextAgentID = agents.AgentID(next)
	if err := json.Unmarshal([]byte(meta[metaStock]), &st.Stock); err != nil {
		return st, fmt.Errorf("parse %s: %w", metaStock, err)
	}

	if err := db.conn.Select(&st.Tiles, "SELECT * FROM tiles ORDER BY idx"); err != nil {
		return st, fmt.Errorf("load tiles: %w", err)
	}
	if st.Agents, err = db.loadAgents(); err != nil {
		return st, err
	}
	if err := db.conn.Select(&st.Jobs, "SELECT id, type, target, assignee, priority FROM jobs"); err != nil {
		return st, fmt.Errorf("load jobs: %w", err)
	}

	slog.Info("world state loaded", "tick", st.Tick, "tiles", len(st.Tiles), "agents", len(st.Agents), "jobs", len(st.Jobs))
	return st, nil
}

func (db *DB) loadMeta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.Select(&rows, "SELECT key, value FROM world_meta"); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (db *DB) loadAgents() ([]agents.Agent, error) {
	var rows []agentRow
	if err := db.conn.Select(&rows, "SELECT * FROM agents ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	out := make([]agents.Agent, 0, len(rows))
	for _, r := range rows {
		state, err := agents.ParseState(r.State)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", r.ID, err)
		}
		intent, err := agents.ParseIntent(r.Intent)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", r.ID, err)
		}
		out = append(out, agents.Agent{
			ID:      agents.AgentID(r.ID),
			Name:    r.Name,
			X:       r.X,
			Z:       r.Z,
			RenderX: r.X,
			RenderZ: r.Z,
			State:   state,
			Intent:  intent,
			Target:  r.Target,
			Needs:   agents.Needs{Energy: r.Energy, Hunger: r.Hunger, Mood: r.Mood},
			Skills:  agents.Skills{Construction: r.SkillConstruction, Mining: r.SkillMining},
		})
	}
	return out, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
