// Command roversim runs the rover grid-world simulator.
//
// It supports four modes:
//  1. "serve" - runs the HTTP server exposing the REST API and WebSocket telemetry
//  2. "run"   - runs one mission from a scenario file and prints the result
//  3. "compare" - benchmarks all planning heuristics on a scenario
//  4. "mcp"   - runs an MCP stdio server for agent tooling
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/redsand/roversim/api"
	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/scenario"
	"github.com/redsand/roversim/sim/service"
	"github.com/redsand/roversim/sim/session"
	"github.com/redsand/roversim/storage"
	"github.com/redsand/roversim/transport/mcp"
	"github.com/redsand/roversim/transport/websocket"
)

const (
	appName = "roversim"
	version = "1.0.0"
)

func main() {
	// Load .env if present so local overrides work without exporting.
	godotenv.Load()

	cmd := &cli.Command{
		Name:    appName,
		Usage:   "autonomous rover grid-world simulator",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			runCommand(),
			compareCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API and WebSocket telemetry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Value: "localhost",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Value: 8080,
				Usage: "HTTP server port",
			},
			&cli.StringFlag{
				Name:    "scenario-dir",
				Value:   "scenarios",
				Usage:   "directory containing scenario files",
				Sources: cli.EnvVars("SCENARIO_DIR"),
			},
			&cli.StringFlag{
				Name:  "sessions-dir",
				Value: "sessions",
				Usage: "directory for persisted sessions",
			},
			&cli.StringFlag{
				Name:  "archive-db",
				Value: "missions.db",
				Usage: "SQLite mission archive path (empty disables archiving)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd.Bool("debug"))

			hub := websocket.NewHub(logger.With().Str("component", "telemetry").Logger())
			go hub.Run()

			simService, store, err := initializeServices(
				cmd.String("scenario-dir"), cmd.String("sessions-dir"), cmd.String("archive-db"),
				hub, logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			apiServer := api.NewServer(simService, hub, logger.With().Str("component", "api").Logger())
			mcpServer := mcp.NewServer(simService)

			mainRouter := http.NewServeMux()
			mainRouter.Handle("/", apiServer)
			mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
					return
				}

				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "Failed to read request", http.StatusBadRequest)
					return
				}
				defer r.Body.Close()

				response := mcpServer.HandleMessage(r.Context(), body)

				w.Header().Set("Content-Type", "application/json")
				responseData, err := json.Marshal(response)
				if err != nil {
					http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
					return
				}
				w.Write(responseData)
			})

			addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      mainRouter,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", addr).
					Str("api", fmt.Sprintf("http://%s/api", addr)).
					Str("ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
					Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
					Msg("HTTP server listening")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run one mission from a scenario file and print the result",
		ArgsUsage: "<scenario file or name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "heuristic",
				Usage: "override the scenario's planning heuristic",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd.Bool("debug"))

			sc, err := loadScenarioArg(cmd.Args().First())
			if err != nil {
				return err
			}

			env, rv, err := sc.Build()
			if err != nil {
				return err
			}

			h := sc.PlannerHeuristic()
			if override := cmd.String("heuristic"); override != "" {
				if !planner.Known(planner.Heuristic(override)) {
					return fmt.Errorf("unknown heuristic '%s'", override)
				}
				h = planner.Heuristic(override)
			}

			runner := mission.NewRunner(env, rv, h)
			if sc.MaxSteps > 0 {
				runner.MaxSteps = sc.MaxSteps
			}
			runner.Logger = logger.With().Str("scenario", sc.Name).Logger()

			res := runner.Run(sc.Goal)
			printResult(sc, h, res)
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "benchmark all planning heuristics on a scenario",
		ArgsUsage: "<scenario file or name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sc, err := loadScenarioArg(cmd.Args().First())
			if err != nil {
				return err
			}

			env, _, err := sc.Build()
			if err != nil {
				return err
			}

			fmt.Printf("Scenario: %s (%dx%d), start (%d,%d) goal (%d,%d)\n\n",
				sc.Name, sc.Width, sc.Height, sc.Start.X, sc.Start.Y, sc.Goal.X, sc.Goal.Y)
			fmt.Printf("%-22s %-8s %-8s %-8s %s\n", "HEURISTIC", "FOUND", "LENGTH", "COST", "NODES")
			for _, r := range planner.CompareHeuristics(env, sc.Start, sc.Goal) {
				fmt.Printf("%-22s %-8t %-8d %-8d %d\n",
					r.Heuristic, r.Found, r.PathLength, r.PathCost, r.NodesExpanded)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scenario-dir",
				Value:   "scenarios",
				Usage:   "directory containing scenario files",
				Sources: cli.EnvVars("SCENARIO_DIR"),
			},
			&cli.StringFlag{
				Name:  "sessions-dir",
				Value: "sessions",
				Usage: "directory for persisted sessions",
			},
			&cli.StringFlag{
				Name:  "archive-db",
				Value: "",
				Usage: "SQLite mission archive path (empty disables archiving)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Stdout carries the MCP protocol, so logs stay on stderr.
			logger := newLogger(cmd.Bool("debug"))

			simService, store, err := initializeServices(
				cmd.String("scenario-dir"), cmd.String("sessions-dir"), cmd.String("archive-db"),
				nil, logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			logger.Info().Msg("MCP stdio server starting")
			return mcp.NewServer(simService).ServeStdio()
		},
	}
}

// initializeServices wires the scenario manager, persisted sessions, and
// the optional mission archive into a SimService.
func initializeServices(scenarioDir, sessionsDir, archivePath string, telemetry service.TelemetryPublisher, logger zerolog.Logger) (service.SimService, *storage.Store, error) {
	scenarioManager := scenario.NewManager(scenarioDir)

	persistence, err := session.NewFilePersistence(sessionsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(persistence, logger.With().Str("component", "sessions").Logger())
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	var store *storage.Store
	if archivePath != "" {
		store, err = storage.Open(archivePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open mission archive: %w", err)
		}
	}

	go sessionCleanupRoutine(sessionManager, logger)

	var archive service.MissionArchive
	if store != nil {
		archive = store
	}
	simService := service.NewSimService(sessionManager, scenarioManager, archive, telemetry, logger)
	return simService, store, nil
}

// sessionCleanupRoutine periodically prunes sessions idle for more than a
// day.
func sessionCleanupRoutine(manager *session.Manager, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if removed := manager.CleanupExpired(24 * time.Hour); removed > 0 {
			logger.Info().Int("count", removed).Msg("cleaned up expired sessions")
		}
	}
}

// loadScenarioArg resolves a CLI argument to a scenario: a path to a JSON
// file, a named scenario in the scenario directory, or the built-in
// default when empty.
func loadScenarioArg(arg string) (*scenario.Scenario, error) {
	if arg == "" {
		return scenario.Default(), nil
	}
	if _, err := os.Stat(arg); err == nil {
		return scenario.Load(arg)
	}
	return scenario.LoadByName(arg)
}

func printResult(sc *scenario.Scenario, h planner.Heuristic, res *mission.Result) {
	status := "FAILED"
	if res.Success {
		status = "SUCCESS"
	}
	fmt.Printf("Mission %s (%s)\n", status, res.Reason)
	fmt.Printf("  scenario:   %s (heuristic %s)\n", sc.Name, h)
	fmt.Printf("  position:   (%d,%d)\n", res.FinalPosition.X, res.FinalPosition.Y)
	fmt.Printf("  battery:    %d\n", res.FinalBattery)
	fmt.Printf("  steps:      %d (distance %.1f)\n", res.Steps, res.TotalDistance)
	fmt.Printf("  recharges:  %d  replans: %d  backtracks: %d\n",
		res.RechargeCount, res.ReplanCount, res.BacktrackCount)
	for _, e := range res.Events {
		fmt.Printf("  event: step %d %s at (%d,%d)\n", e.Step, e.Kind, e.Position.X, e.Position.Y)
	}
}
