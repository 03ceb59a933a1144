// Package service exposes simulation sessions behind a transport-neutral
// interface shared by the REST API, the websocket feed, and the MCP
// server.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/rover"
	"github.com/redsand/roversim/sim/scenario"
	"github.com/redsand/roversim/sim/world"
)

// SimService defines all simulation operations.
type SimService interface {
	// Session management
	CreateSession(ctx context.Context, scenarioID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) (*RoverState, error)

	// Simulation operations
	RunMission(ctx context.Context, sessionID string) (*mission.Result, error)
	PlanPath(ctx context.Context, sessionID string, heuristic string) (*planner.Report, error)
	CompareHeuristics(ctx context.Context, sessionID string) ([]planner.Report, error)
	SetTerrain(ctx context.Context, sessionID string, x, y int, kind world.TerrainKind) error

	// State
	RoverState(ctx context.Context, sessionID string) (*RoverState, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*scenario.Info, error)
	SaveScenario(ctx context.Context, scenarioID string, s *scenario.Scenario) error

	// Mission archive
	MissionRecords(ctx context.Context, limit int) ([]MissionRecord, error)
	MissionEvents(ctx context.Context, missionID string) ([]mission.Event, error)
}

// SessionManager defines session storage operations.
type SessionManager interface {
	Create(id string, sc *scenario.Scenario) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ScenarioManager handles scenario loading.
type ScenarioManager interface {
	Load(id string) (*scenario.Scenario, error)
	List() ([]*scenario.Info, error)
	GetDefault() *scenario.Scenario
	Save(id string, s *scenario.Scenario) error
}

// TelemetryPublisher receives per-step snapshots and final results for
// fan-out to live subscribers. Implementations must not block.
type TelemetryPublisher interface {
	PublishSnapshot(sessionID string, snap mission.Snapshot)
	PublishResult(sessionID string, res *mission.Result)
}

// MissionArchive persists finished mission results.
type MissionArchive interface {
	SaveResult(ctx context.Context, sessionID, scenarioName string, heuristic string, res *mission.Result) (string, error)
	ListMissions(ctx context.Context, limit int) ([]MissionRecord, error)
	MissionEvents(ctx context.Context, missionID string) ([]mission.Event, error)
}

// MissionRecord is an archived mission summary row.
type MissionRecord struct {
	ID            string    `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	ScenarioName  string    `json:"scenario_name" db:"scenario_name"`
	Heuristic     string    `json:"heuristic" db:"heuristic"`
	Success       bool      `json:"success" db:"success"`
	Reason        string    `json:"reason" db:"reason"`
	Steps         int       `json:"steps" db:"steps"`
	FinalBattery  int       `json:"final_battery" db:"final_battery"`
	RechargeCount int       `json:"recharge_count" db:"recharge_count"`
	Distance      float64   `json:"distance" db:"distance"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Session is an active simulation session: one environment and one rover
// built from a scenario.
type Session struct {
	ID             string
	Scenario       *scenario.Scenario
	Env            *world.Environment
	Rover          *rover.Rover
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastResult     *mission.Result

	mu sync.Mutex
}

// Lock takes the session's run lock. A mission holds it for its whole
// duration so nothing else mutates the environment or rover mid-run.
func (s *Session) Lock() { s.mu.Lock() }

// TryLock takes the run lock without blocking; false means a mission is
// in flight.
func (s *Session) TryLock() bool { return s.mu.TryLock() }

// Unlock releases the run lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// RoverState is a transport-friendly snapshot of a session's rover.
type RoverState struct {
	Position      world.Position   `json:"position"`
	Battery       int              `json:"battery"`
	MaxBattery    int              `json:"max_battery"`
	BatteryPct    float64          `json:"battery_pct"`
	StepCount     int              `json:"step_count"`
	RechargeCount int              `json:"recharge_count"`
	TotalDistance float64          `json:"total_distance"`
	Daytime       bool             `json:"daytime"`
	InStorm       bool             `json:"in_storm"`
	PathHistory   []world.Position `json:"path_history"`
}

// SessionInfo provides information about a simulation session.
type SessionInfo struct {
	ID             string          `json:"id"`
	ScenarioName   string          `json:"scenario_name"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Goal           world.Position  `json:"goal"`
	Heuristic      string          `json:"heuristic"`
	State          *RoverState     `json:"state"`
	LastResult     *mission.Result `json:"last_result,omitempty"`
}
