// Package mcp exposes the simulation over the Model Context Protocol so
// agent tooling can drive rover sessions through stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/redsand/roversim/sim/service"
	"github.com/redsand/roversim/sim/world"
)

// Server wraps an MCP server around the simulation service.
type Server struct {
	service   service.SimService
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers all tools.
func NewServer(simService service.SimService) *Server {
	s := &Server{service: simService}
	s.initMCPServer()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes one raw JSON-RPC message, so the MCP server can
// also be mounted on an HTTP endpoint.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

func (s *Server) initMCPServer() {
	s.mcpServer = server.NewMCPServer(
		"Rover Grid Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rover Grid Simulator - MCP Interface

Drive an autonomous rover across a terrain grid toward a goal cell.
The rover plans with A*, reacts to storms and hazards with a reflex
controller, and manages a solar battery.

AVAILABLE TOOLS:
- create_session: Create a simulation session from a scenario
- list_sessions: List active sessions
- rover_state: Get the rover's position, battery, and history
- run_mission: Run the mission loop to completion
- plan_path: Plan a path with a chosen heuristic without moving
- compare_heuristics: Benchmark all five heuristics on the session
- set_terrain: Edit one terrain cell before a run
- reset_session: Rebuild the session from its scenario
- list_scenarios: List available scenarios`),
	)

	s.registerTools()
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session with an optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to load (optional, defaults to the built-in benchmark)",
				},
			},
		},
	}, s.handleCreateSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListSessions)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_state",
		Description: "Get the rover's current state for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleRoverState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "run_mission",
		Description: "Run the mission loop from the rover's current position to the scenario goal",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleRunMission)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_path",
		Description: "Plan a path to the goal without moving the rover",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"heuristic": map[string]interface{}{
					"type":        "string",
					"description": "euclidean, manhattan, weighted_euclidean, risk_aware, or terrain_cost_aware (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handlePlanPath)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "compare_heuristics",
		Description: "Run all five planning heuristics on the session and compare path cost and search effort",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleCompareHeuristics)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "set_terrain",
		Description: "Set the terrain kind of one grid cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Cell X coordinate",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Cell Y coordinate",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "flat, sandy, sand_trap, radiation_spot, cliff, rocky, or recharge_station",
				},
			},
			Required: []string{"session_id", "x", "y", "kind"},
		},
	}, s.handleSetTerrain)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_session",
		Description: "Rebuild a session's environment and rover from its scenario",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleResetSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListScenarios)
}

// Tool handlers

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	scenarioID, _ := args["scenario_id"].(string)

	info, err := s.service.CreateSession(ctx, scenarioID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nScenario: %s\nGoal: (%d,%d)\nHeuristic: %s\n",
		info.ID, info.ScenarioName, info.Goal.X, info.Goal.Y, info.Heuristic)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.service.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", len(sessions))
	for _, info := range sessions {
		fmt.Fprintf(&b, "- %s: scenario=%s rover=(%d,%d) battery=%d/%d\n",
			info.ID, info.ScenarioName,
			info.State.Position.X, info.State.Position.Y,
			info.State.Battery, info.State.MaxBattery)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleRoverState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	state, err := s.service.RoverState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoverState(state)), nil
}

func (s *Server) handleRunMission(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	res, err := s.service.RunMission(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	status := "FAILED"
	if res.Success {
		status = "SUCCESS"
	}
	fmt.Fprintf(&b, "Mission %s (%s)\n", status, res.Reason)
	fmt.Fprintf(&b, "Final position: (%d,%d)\n", res.FinalPosition.X, res.FinalPosition.Y)
	fmt.Fprintf(&b, "Battery: %d\n", res.FinalBattery)
	fmt.Fprintf(&b, "Steps: %d, distance: %.1f\n", res.Steps, res.TotalDistance)
	fmt.Fprintf(&b, "Recharges: %d, replans: %d, backtracks: %d\n", res.RechargeCount, res.ReplanCount, res.BacktrackCount)
	if len(res.Events) > 0 {
		fmt.Fprintf(&b, "Events:\n")
		for _, e := range res.Events {
			fmt.Fprintf(&b, "- step %d: %s at (%d,%d)\n", e.Step, e.Kind, e.Position.X, e.Position.Y)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handlePlanPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	heuristic, _ := args["heuristic"].(string)

	report, err := s.service.PlanPath(ctx, sessionID, heuristic)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !report.Found {
		return mcp.NewToolResultText(fmt.Sprintf("No path found (%s, %d nodes expanded)", report.Heuristic, report.NodesExpanded)), nil
	}
	result := fmt.Sprintf("Heuristic: %s\nPath length: %d\nPath cost: %d\nNodes expanded: %d\n",
		report.Heuristic, report.PathLength, report.PathCost, report.NodesExpanded)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleCompareHeuristics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	reports, err := s.service.CompareHeuristics(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Heuristic comparison:\n\n")
	for _, r := range reports {
		if !r.Found {
			fmt.Fprintf(&b, "- %s: no path (%d nodes)\n", r.Heuristic, r.NodesExpanded)
			continue
		}
		fmt.Fprintf(&b, "- %s: length=%d cost=%d nodes=%d\n", r.Heuristic, r.PathLength, r.PathCost, r.NodesExpanded)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleSetTerrain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	kind, _ := args["kind"].(string)

	err := s.service.SetTerrain(ctx, sessionID, int(x), int(y), world.TerrainKind(kind))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Terrain at (%d,%d) set to %s", int(x), int(y), kind)), nil
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	state, err := s.service.ResetSession(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Session reset\n" + formatRoverState(state)), nil
}

func (s *Server) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scenarios, err := s.service.ListScenarios(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available scenarios (%d):\n\n", len(scenarios))
	for _, info := range scenarios {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, battery %d)\n",
			info.ScenarioID, info.Description, info.Width, info.Height, info.BatteryCapacity)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatRoverState(state *service.RoverState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: (%d,%d)\n", state.Position.X, state.Position.Y)
	fmt.Fprintf(&b, "Battery: %d/%d (%.1f%%)\n", state.Battery, state.MaxBattery, state.BatteryPct)
	fmt.Fprintf(&b, "Steps: %d, distance: %.1f, recharges: %d\n", state.StepCount, state.TotalDistance, state.RechargeCount)
	if state.Daytime {
		b.WriteString("Daylight: yes\n")
	} else {
		b.WriteString("Daylight: no\n")
	}
	if state.InStorm {
		b.WriteString("WARNING: rover is inside a storm\n")
	}
	return b.String()
}
