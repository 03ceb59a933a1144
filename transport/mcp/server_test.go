package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/scenario"
	"github.com/redsand/roversim/sim/service"
	"github.com/redsand/roversim/sim/session"
	"github.com/redsand/roversim/sim/world"
)

// stubService satisfies service.SimService with canned responses so tool
// handlers can be exercised without a real session manager.
type stubService struct {
	createSessionFunc     func(ctx context.Context, scenarioID string) (*service.SessionInfo, error)
	runMissionFunc        func(ctx context.Context, sessionID string) (*mission.Result, error)
	planPathFunc          func(ctx context.Context, sessionID, heuristic string) (*planner.Report, error)
	compareHeuristicsFunc func(ctx context.Context, sessionID string) ([]planner.Report, error)
	setTerrainFunc        func(ctx context.Context, sessionID string, x, y int, kind world.TerrainKind) error
	roverStateFunc        func(ctx context.Context, sessionID string) (*service.RoverState, error)
}

func (s *stubService) CreateSession(ctx context.Context, scenarioID string) (*service.SessionInfo, error) {
	if s.createSessionFunc != nil {
		return s.createSessionFunc(ctx, scenarioID)
	}
	return &service.SessionInfo{
		ID:           "session-123",
		ScenarioName: "benchmark",
		Goal:         world.Position{X: 9, Y: 9},
		Heuristic:    "manhattan",
		State:        defaultRoverState(),
	}, nil
}

func (s *stubService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	return nil, session.ErrSessionNotFound
}

func (s *stubService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	return []*service.SessionInfo{
		{ID: "session-123", ScenarioName: "benchmark", State: defaultRoverState()},
	}, nil
}

func (s *stubService) DeleteSession(ctx context.Context, sessionID string) error { return nil }

func (s *stubService) ResetSession(ctx context.Context, sessionID string) (*service.RoverState, error) {
	return defaultRoverState(), nil
}

func (s *stubService) RunMission(ctx context.Context, sessionID string) (*mission.Result, error) {
	if s.runMissionFunc != nil {
		return s.runMissionFunc(ctx, sessionID)
	}
	return &mission.Result{
		Success:       true,
		Reason:        mission.ReasonGoalReached,
		FinalPosition: world.Position{X: 9, Y: 9},
		FinalBattery:  60,
		Steps:         18,
		RechargeCount: 1,
	}, nil
}

func (s *stubService) PlanPath(ctx context.Context, sessionID, heuristic string) (*planner.Report, error) {
	if s.planPathFunc != nil {
		return s.planPathFunc(ctx, sessionID, heuristic)
	}
	return &planner.Report{Heuristic: "euclidean", Found: true, PathLength: 19, PathCost: 85, NodesExpanded: 42}, nil
}

func (s *stubService) CompareHeuristics(ctx context.Context, sessionID string) ([]planner.Report, error) {
	if s.compareHeuristicsFunc != nil {
		return s.compareHeuristicsFunc(ctx, sessionID)
	}
	return []planner.Report{
		{Heuristic: "euclidean", Found: true, PathLength: 19, PathCost: 85, NodesExpanded: 42},
		{Heuristic: "manhattan", Found: true, PathLength: 19, PathCost: 85, NodesExpanded: 37},
	}, nil
}

func (s *stubService) SetTerrain(ctx context.Context, sessionID string, x, y int, kind world.TerrainKind) error {
	if s.setTerrainFunc != nil {
		return s.setTerrainFunc(ctx, sessionID, x, y, kind)
	}
	return nil
}

func (s *stubService) RoverState(ctx context.Context, sessionID string) (*service.RoverState, error) {
	if s.roverStateFunc != nil {
		return s.roverStateFunc(ctx, sessionID)
	}
	return defaultRoverState(), nil
}

func (s *stubService) ListScenarios(ctx context.Context) ([]*scenario.Info, error) {
	return []*scenario.Info{
		{ScenarioID: "benchmark", Description: "Built-in benchmark grid", Width: 10, Height: 10, BatteryCapacity: 100},
	}, nil
}

func (s *stubService) SaveScenario(ctx context.Context, scenarioID string, sc *scenario.Scenario) error {
	return nil
}

func (s *stubService) MissionRecords(ctx context.Context, limit int) ([]service.MissionRecord, error) {
	return nil, service.ErrArchiveDisabled
}

func (s *stubService) MissionEvents(ctx context.Context, missionID string) ([]mission.Event, error) {
	return nil, service.ErrArchiveDisabled
}

func defaultRoverState() *service.RoverState {
	return &service.RoverState{
		Position:   world.Position{X: 2, Y: 3},
		Battery:    75,
		MaxBattery: 100,
		BatteryPct: 75.0,
		StepCount:  4,
		Daytime:    true,
	}
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result with content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewServer(t *testing.T) {
	s := NewServer(&stubService{})

	if s == nil {
		t.Fatal("Expected server to be created")
	}
	if s.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
	if s.service == nil {
		t.Error("Expected service to be set")
	}
}

func TestHandleCreateSession(t *testing.T) {
	var gotScenarioID string
	stub := &stubService{
		createSessionFunc: func(ctx context.Context, scenarioID string) (*service.SessionInfo, error) {
			gotScenarioID = scenarioID
			return &service.SessionInfo{
				ID:           "session-123",
				ScenarioName: "canyon_run",
				Goal:         world.Position{X: 11, Y: 7},
				Heuristic:    "risk_aware",
				State:        defaultRoverState(),
			}, nil
		},
	}
	s := NewServer(stub)

	request := toolRequest("create_session", map[string]interface{}{"scenario_id": "canyon_run"})
	result, err := s.handleCreateSession(context.Background(), request)
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}

	if gotScenarioID != "canyon_run" {
		t.Errorf("Expected scenario_id canyon_run to reach the service, got %q", gotScenarioID)
	}

	text := resultText(t, result)
	for _, want := range []string{"session-123", "canyon_run", "(11,7)", "risk_aware"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestHandleCreateSessionError(t *testing.T) {
	stub := &stubService{
		createSessionFunc: func(ctx context.Context, scenarioID string) (*service.SessionInfo, error) {
			return nil, errors.New("scenario not found")
		},
	}
	s := NewServer(stub)

	result, err := s.handleCreateSession(context.Background(), toolRequest("create_session", map[string]interface{}{"scenario_id": "nope"}))
	if err != nil {
		t.Fatalf("Handler should return the error as a tool result, got: %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("Expected an error tool result")
	}
}

func TestHandleRoverState(t *testing.T) {
	s := NewServer(&stubService{})

	result, err := s.handleRoverState(context.Background(), toolRequest("rover_state", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handleRoverState failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Position: (2,3)", "Battery: 75/100", "Daylight: yes"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in rover state, got: %s", want, text)
		}
	}
}

func TestHandleRoverStateInStorm(t *testing.T) {
	stub := &stubService{
		roverStateFunc: func(ctx context.Context, sessionID string) (*service.RoverState, error) {
			state := defaultRoverState()
			state.InStorm = true
			state.Daytime = false
			return state, nil
		},
	}
	s := NewServer(stub)

	result, err := s.handleRoverState(context.Background(), toolRequest("rover_state", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handleRoverState failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "inside a storm") {
		t.Errorf("Expected storm warning, got: %s", text)
	}
	if !strings.Contains(text, "Daylight: no") {
		t.Errorf("Expected night flag, got: %s", text)
	}
}

func TestHandleRunMission(t *testing.T) {
	stub := &stubService{
		runMissionFunc: func(ctx context.Context, sessionID string) (*mission.Result, error) {
			return &mission.Result{
				Success:       true,
				Reason:        mission.ReasonGoalReached,
				FinalPosition: world.Position{X: 9, Y: 9},
				FinalBattery:  60,
				Steps:         18,
				RechargeCount: 1,
				Events: []mission.Event{
					{Step: 10, Kind: mission.EventRecharge, Position: world.Position{X: 5, Y: 5}},
				},
			}, nil
		},
	}
	s := NewServer(stub)

	result, err := s.handleRunMission(context.Background(), toolRequest("run_mission", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handleRunMission failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Mission SUCCESS (goal_reached)", "Final position: (9,9)", "Battery: 60", "step 10: recharge at (5,5)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in mission summary, got: %s", want, text)
		}
	}
}

func TestHandleRunMissionFailure(t *testing.T) {
	stub := &stubService{
		runMissionFunc: func(ctx context.Context, sessionID string) (*mission.Result, error) {
			return &mission.Result{
				Success:       false,
				Reason:        mission.ReasonStranded,
				FinalPosition: world.Position{X: 4, Y: 2},
			}, nil
		},
	}
	s := NewServer(stub)

	result, err := s.handleRunMission(context.Background(), toolRequest("run_mission", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handleRunMission failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Mission FAILED (stranded)") {
		t.Errorf("Expected failure summary, got: %s", text)
	}
}

func TestHandlePlanPathPassesHeuristic(t *testing.T) {
	var gotHeuristic string
	stub := &stubService{
		planPathFunc: func(ctx context.Context, sessionID, heuristic string) (*planner.Report, error) {
			gotHeuristic = heuristic
			return &planner.Report{Heuristic: planner.Heuristic(heuristic), Found: true, PathLength: 19, PathCost: 85, NodesExpanded: 30}, nil
		},
	}
	s := NewServer(stub)

	request := toolRequest("plan_path", map[string]interface{}{
		"session_id": "session-123",
		"heuristic":  "terrain_cost_aware",
	})
	result, err := s.handlePlanPath(context.Background(), request)
	if err != nil {
		t.Fatalf("handlePlanPath failed: %v", err)
	}

	if gotHeuristic != "terrain_cost_aware" {
		t.Errorf("Expected heuristic to reach the service, got %q", gotHeuristic)
	}

	text := resultText(t, result)
	for _, want := range []string{"terrain_cost_aware", "Path length: 19", "Path cost: 85"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in plan output, got: %s", want, text)
		}
	}
}

func TestHandlePlanPathNoPath(t *testing.T) {
	stub := &stubService{
		planPathFunc: func(ctx context.Context, sessionID, heuristic string) (*planner.Report, error) {
			return &planner.Report{Heuristic: "euclidean", Found: false, NodesExpanded: 12}, nil
		},
	}
	s := NewServer(stub)

	result, err := s.handlePlanPath(context.Background(), toolRequest("plan_path", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handlePlanPath failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "No path found") {
		t.Errorf("Expected no-path message, got: %s", text)
	}
}

func TestHandleCompareHeuristics(t *testing.T) {
	s := NewServer(&stubService{})

	result, err := s.handleCompareHeuristics(context.Background(), toolRequest("compare_heuristics", map[string]interface{}{"session_id": "session-123"}))
	if err != nil {
		t.Fatalf("handleCompareHeuristics failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"euclidean", "manhattan", "length=19 cost=85"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in comparison, got: %s", want, text)
		}
	}
}

func TestHandleSetTerrain(t *testing.T) {
	var gotX, gotY int
	var gotKind world.TerrainKind
	stub := &stubService{
		setTerrainFunc: func(ctx context.Context, sessionID string, x, y int, kind world.TerrainKind) error {
			gotX, gotY, gotKind = x, y, kind
			return nil
		},
	}
	s := NewServer(stub)

	request := toolRequest("set_terrain", map[string]interface{}{
		"session_id": "session-123",
		"x":          float64(4),
		"y":          float64(6),
		"kind":       "sand_trap",
	})
	result, err := s.handleSetTerrain(context.Background(), request)
	if err != nil {
		t.Fatalf("handleSetTerrain failed: %v", err)
	}

	if gotX != 4 || gotY != 6 || gotKind != world.SandTrap {
		t.Errorf("Expected (4,6,sand_trap) to reach the service, got (%d,%d,%s)", gotX, gotY, gotKind)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Terrain at (4,6) set to sand_trap") {
		t.Errorf("Expected confirmation, got: %s", text)
	}
}

func TestHandleListScenarios(t *testing.T) {
	s := NewServer(&stubService{})

	result, err := s.handleListScenarios(context.Background(), toolRequest("list_scenarios", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleListScenarios failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"benchmark", "10x10", "battery 100"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in scenario list, got: %s", want, text)
		}
	}
}

func TestHandleListSessions(t *testing.T) {
	s := NewServer(&stubService{})

	result, err := s.handleListSessions(context.Background(), toolRequest("list_sessions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleListSessions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Active Sessions (1)", "session-123", "battery=75/100"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in session list, got: %s", want, text)
		}
	}
}
