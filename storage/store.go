// Package storage archives finished missions in SQLite so results and
// their event streams survive restarts and feed the history endpoints.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/service"
)

const defaultListLimit = 50

// Store is the SQLite-backed mission archive.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the archive database at path. Use ":memory:" for
// an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping archive db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS missions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		scenario_name TEXT NOT NULL,
		heuristic TEXT NOT NULL,
		success INTEGER NOT NULL,
		reason TEXT NOT NULL,
		steps INTEGER NOT NULL,
		final_battery INTEGER NOT NULL,
		recharge_count INTEGER NOT NULL,
		replan_count INTEGER NOT NULL,
		backtrack_count INTEGER NOT NULL,
		distance REAL NOT NULL,
		nodes_expanded INTEGER NOT NULL,
		path_history TEXT NOT NULL,
		battery_history TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS mission_events (
		mission_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		step INTEGER NOT NULL,
		kind TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		PRIMARY KEY (mission_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_missions_session ON missions(session_id);
	CREATE INDEX IF NOT EXISTS idx_missions_created ON missions(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate archive db: %w", err)
	}
	return nil
}

// SaveResult archives a mission result and its events, returning the new
// mission ID. Histories are stored as JSON columns; they are read back
// whole, never queried by cell.
func (s *Store) SaveResult(ctx context.Context, sessionID, scenarioName, heuristic string, res *mission.Result) (string, error) {
	pathJSON, err := json.Marshal(res.PathHistory)
	if err != nil {
		return "", fmt.Errorf("marshal path history: %w", err)
	}
	batteryJSON, err := json.Marshal(res.BatteryHistory)
	if err != nil {
		return "", fmt.Errorf("marshal battery history: %w", err)
	}

	id := uuid.NewString()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO missions
		(id, session_id, scenario_name, heuristic, success, reason, steps,
		 final_battery, recharge_count, replan_count, backtrack_count,
		 distance, nodes_expanded, path_history, battery_history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, scenarioName, heuristic, res.Success, res.Reason, res.Steps,
		res.FinalBattery, res.RechargeCount, res.ReplanCount, res.BacktrackCount,
		res.TotalDistance, res.NodesExpanded, string(pathJSON), string(batteryJSON), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert mission: %w", err)
	}

	for i, event := range res.Events {
		_, err = tx.ExecContext(ctx, `INSERT INTO mission_events
			(mission_id, seq, step, kind, x, y) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, event.Step, string(event.Kind), event.Position.X, event.Position.Y)
		if err != nil {
			return "", fmt.Errorf("insert mission event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit mission: %w", err)
	}
	return id, nil
}

// ListMissions returns the most recent archived missions.
func (s *Store) ListMissions(ctx context.Context, limit int) ([]service.MissionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var records []service.MissionRecord
	err := s.db.SelectContext(ctx, &records, `SELECT
		id, session_id, scenario_name, heuristic, success, reason, steps,
		final_battery, recharge_count, distance, created_at
		FROM missions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return records, nil
}

// MissionEvents returns the ordered event stream of an archived mission.
func (s *Store) MissionEvents(ctx context.Context, missionID string) ([]mission.Event, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT step, kind, x, y
		FROM mission_events WHERE mission_id = ? ORDER BY seq`, missionID)
	if err != nil {
		return nil, fmt.Errorf("query mission events: %w", err)
	}
	defer rows.Close()

	var events []mission.Event
	for rows.Next() {
		var (
			step int
			kind string
			x, y int
		)
		if err := rows.Scan(&step, &kind, &x, &y); err != nil {
			return nil, fmt.Errorf("scan mission event: %w", err)
		}
		event := mission.Event{Step: step, Kind: mission.EventKind(kind)}
		event.Position.X = x
		event.Position.Y = y
		events = append(events, event)
	}
	return events, rows.Err()
}

// MissionHistories reloads the archived path and battery histories of a
// mission.
func (s *Store) MissionHistories(ctx context.Context, missionID string) (path json.RawMessage, battery json.RawMessage, err error) {
	var row struct {
		Path    string `db:"path_history"`
		Battery string `db:"battery_history"`
	}
	err = s.db.GetContext(ctx, &row, `SELECT path_history, battery_history
		FROM missions WHERE id = ?`, missionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load mission histories: %w", err)
	}
	return json.RawMessage(row.Path), json.RawMessage(row.Battery), nil
}
