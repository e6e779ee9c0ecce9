// Command mapfcbs runs Conflict-Based Search over a JSON grid and agent
// instance, printing the resulting per-agent paths.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elektrokombinacija/mapf-cbs/internal/cbs"
	"github.com/elektrokombinacija/mapf-cbs/internal/grid"
)

var CLI struct {
	Grid          string `name:"grid" help:"Path to a grid JSON file." type:"path" required:""`
	Agents        string `name:"agents" help:"Path to an agents JSON file." type:"path" required:""`
	MaxIterations int    `name:"max-iterations" help:"High-level search iteration cap (0 uses the default)." default:"0"`
	Verbose       bool   `name:"verbose" short:"v" help:"Log every high-level expansion."`
}

var (
	solveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "mapfcbs_solve_duration_seconds",
		Help: "Wall-clock time spent in CBS.Solve.",
	})
	solveOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapfcbs_solve_total",
		Help: "Count of solve attempts by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(solveDuration, solveOutcome)
}

// agentSpec mirrors the on-disk agent JSON shape: name plus start/goal
// coordinate pairs.
type agentSpec struct {
	Name  string `json:"name"`
	Start [2]int `json:"start"`
	Goal  [2]int `json:"goal"`
}

func main() {
	_ = kong.Parse(&CLI)

	runID := uuid.New().String()
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if CLI.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	logger = logger.With("run_id", runID)

	g, err := loadGrid(CLI.Grid)
	if err != nil {
		logger.Fatal("failed to load grid", "err", err)
	}
	problem, err := loadAgents(CLI.Agents)
	if err != nil {
		logger.Fatal("failed to load agents", "err", err)
	}
	logger.Info("loaded instance", "agents", len(problem.Agents), "width", g.Width(), "height", g.Height())

	solver := cbs.New(g)
	if CLI.Verbose {
		solver.Policy = loggingPolicy{logger: logger}
	}

	start := time.Now()
	solution, err := solver.Solve(problem, CLI.MaxIterations)
	elapsed := time.Since(start)
	solveDuration.Observe(elapsed.Seconds())

	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, cbs.ErrInfeasibleRoot):
			outcome = "infeasible_root"
		case errors.Is(err, cbs.ErrUnsolvable):
			outcome = "unsolvable"
		}
		solveOutcome.WithLabelValues(outcome).Inc()
		logger.Fatal("solve failed", "err", err, "elapsed", elapsed)
	}
	solveOutcome.WithLabelValues("solved").Inc()

	logger.Info("solved", "cost", solution.Cost, "makespan", solution.Makespan(), "elapsed", elapsed)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(solution.AsDict()); err != nil {
		logger.Fatal("failed to encode solution", "err", err)
	}
}

func loadGrid(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return grid.FromJSON(f)
}

func loadAgents(path string) (cbs.ProblemInstance, error) {
	f, err := os.Open(path)
	if err != nil {
		return cbs.ProblemInstance{}, err
	}
	defer f.Close()

	var specs []agentSpec
	if err := json.NewDecoder(f).Decode(&specs); err != nil {
		return cbs.ProblemInstance{}, err
	}

	agents := make([]cbs.Agent, len(specs))
	for i, s := range specs {
		agents[i] = cbs.Agent{
			Name:  s.Name,
			Start: cbs.Position{X: s.Start[0], Y: s.Start[1]},
			Goal:  cbs.Position{X: s.Goal[0], Y: s.Goal[1]},
		}
	}
	return cbs.ProblemInstance{Agents: agents}, nil
}

// loggingPolicy is a PolicyHook that never overrides a selection but logs
// every high-level decision point, for -verbose runs.
type loggingPolicy struct {
	logger *log.Logger
}

func (p loggingPolicy) SelectNode(open []cbs.Node) (cbs.Node, bool) {
	p.logger.Debug("expanding", "open_size", len(open))
	return cbs.Node{}, false
}

func (p loggingPolicy) SelectConflict(conflicts []cbs.Conflict) (cbs.Conflict, bool) {
	p.logger.Debug("branching", "conflicts", len(conflicts))
	return cbs.Conflict{}, false
}
