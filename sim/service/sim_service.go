package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/scenario"
	"github.com/redsand/roversim/sim/world"
)

var (
	// ErrMissionInFlight means the session's rover is mid-mission and the
	// requested operation would race it.
	ErrMissionInFlight = errors.New("mission in flight")
	// ErrArchiveDisabled means no mission archive is configured.
	ErrArchiveDisabled = errors.New("mission archive disabled")
)

// simService is the default SimService implementation. Archive and
// telemetry are optional; nil disables them.
type simService struct {
	sessions  SessionManager
	scenarios ScenarioManager
	archive   MissionArchive
	telemetry TelemetryPublisher
	logger    zerolog.Logger
}

// NewSimService creates the simulation service. archive and telemetry
// may be nil.
func NewSimService(sessions SessionManager, scenarios ScenarioManager, archive MissionArchive, telemetry TelemetryPublisher, logger zerolog.Logger) SimService {
	return &simService{
		sessions:  sessions,
		scenarios: scenarios,
		archive:   archive,
		telemetry: telemetry,
		logger:    logger,
	}
}

func (s *simService) CreateSession(ctx context.Context, scenarioID string) (*SessionInfo, error) {
	var sc *scenario.Scenario
	if scenarioID == "" {
		sc = s.scenarios.GetDefault()
	} else {
		loaded, err := s.scenarios.Load(scenarioID)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario '%s': %w", scenarioID, err)
		}
		sc = loaded
	}

	session, err := s.sessions.Create("", sc)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("session", session.ID).Str("scenario", sc.Name).Msg("session created")
	return s.sessionInfo(session), nil
}

func (s *simService) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(session), nil
}

func (s *simService) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	infos := make([]*SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, s.sessionInfo(session))
	}
	return infos, nil
}

func (s *simService) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

func (s *simService) ResetSession(ctx context.Context, sessionID string) (*RoverState, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.TryLock() {
		return nil, ErrMissionInFlight
	}
	defer session.Unlock()

	// Rebuild from the scenario so terrain edits and storm drift are
	// rolled back along with the rover.
	env, rv, err := session.Scenario.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild session: %w", err)
	}
	session.Env = env
	session.Rover = rv
	session.LastResult = nil
	s.sessions.Save(sessionID)

	return roverState(session), nil
}

func (s *simService) RunMission(ctx context.Context, sessionID string) (*mission.Result, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.TryLock() {
		return nil, ErrMissionInFlight
	}
	defer session.Unlock()

	runner := mission.NewRunner(session.Env, session.Rover, session.Scenario.PlannerHeuristic())
	if session.Scenario.MaxSteps > 0 {
		runner.MaxSteps = session.Scenario.MaxSteps
	}
	runner.Logger = s.logger.With().Str("session", sessionID).Logger()
	if s.telemetry != nil {
		runner.Observer = func(snap mission.Snapshot) {
			s.telemetry.PublishSnapshot(sessionID, snap)
		}
	}

	res := runner.Run(session.Scenario.Goal)
	session.LastResult = res
	s.sessions.UpdateLastAccessed(sessionID)
	s.sessions.Save(sessionID)

	if s.telemetry != nil {
		s.telemetry.PublishResult(sessionID, res)
	}
	if s.archive != nil {
		heuristic := string(session.Scenario.PlannerHeuristic())
		if _, err := s.archive.SaveResult(ctx, sessionID, session.Scenario.Name, heuristic, res); err != nil {
			s.logger.Warn().Err(err).Str("session", sessionID).Msg("failed to archive mission result")
		}
	}

	return res, nil
}

func (s *simService) PlanPath(ctx context.Context, sessionID string, heuristic string) (*planner.Report, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.TryLock() {
		return nil, ErrMissionInFlight
	}
	defer session.Unlock()

	h := session.Scenario.PlannerHeuristic()
	if heuristic != "" {
		if !planner.Known(planner.Heuristic(heuristic)) {
			return nil, fmt.Errorf("unknown heuristic '%s'", heuristic)
		}
		h = planner.Heuristic(heuristic)
	}

	p := planner.New(session.Env)
	report := &planner.Report{Heuristic: h}
	path, err := p.Plan(session.Rover.Position(), session.Scenario.Goal, h)
	report.NodesExpanded = p.NodesExpanded()
	if err == nil {
		report.Found = true
		report.Path = path
		report.PathLength = len(path)
		report.PathCost = planner.PathCost(session.Env, path)
	}
	return report, nil
}

func (s *simService) CompareHeuristics(ctx context.Context, sessionID string) ([]planner.Report, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.TryLock() {
		return nil, ErrMissionInFlight
	}
	defer session.Unlock()

	return planner.CompareHeuristics(session.Env, session.Rover.Position(), session.Scenario.Goal), nil
}

func (s *simService) SetTerrain(ctx context.Context, sessionID string, x, y int, kind world.TerrainKind) error {
	if !world.ValidKind(kind) {
		return fmt.Errorf("unknown terrain kind '%s'", kind)
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if !session.TryLock() {
		return ErrMissionInFlight
	}
	defer session.Unlock()

	if !session.Env.InRange(x, y) {
		return fmt.Errorf("cell (%d,%d) is outside the %dx%d grid", x, y, session.Env.Width(), session.Env.Height())
	}
	session.Env.SetTerrain(x, y, kind)
	s.sessions.Save(sessionID)
	return nil
}

func (s *simService) RoverState(ctx context.Context, sessionID string) (*RoverState, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return roverState(session), nil
}

func (s *simService) ListScenarios(ctx context.Context) ([]*scenario.Info, error) {
	return s.scenarios.List()
}

func (s *simService) SaveScenario(ctx context.Context, scenarioID string, sc *scenario.Scenario) error {
	return s.scenarios.Save(scenarioID, sc)
}

func (s *simService) MissionRecords(ctx context.Context, limit int) ([]MissionRecord, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListMissions(ctx, limit)
}

func (s *simService) MissionEvents(ctx context.Context, missionID string) ([]mission.Event, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.MissionEvents(ctx, missionID)
}

func (s *simService) sessionInfo(session *Session) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		ScenarioName:   session.Scenario.Name,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Goal:           session.Scenario.Goal,
		Heuristic:      string(session.Scenario.PlannerHeuristic()),
		State:          roverState(session),
		LastResult:     session.LastResult,
	}
}

func roverState(session *Session) *RoverState {
	pos := session.Rover.Position()
	return &RoverState{
		Position:      pos,
		Battery:       session.Rover.Battery(),
		MaxBattery:    session.Rover.MaxBattery(),
		BatteryPct:    session.Rover.BatteryPercentage(),
		StepCount:     session.Rover.StepCount(),
		RechargeCount: session.Rover.RechargeCount(),
		TotalDistance: session.Rover.TotalDistance(),
		Daytime:       session.Rover.Daytime(),
		InStorm:       session.Env.InStorm(pos.X, pos.Y),
		PathHistory:   session.Rover.PathHistory(),
	}
}
