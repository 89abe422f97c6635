// Package optim searches profile parameters for the best value of a ride
// metric.
package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/metrics"
	"github.com/san-kum/braketilt/internal/ride"
	"github.com/san-kum/braketilt/internal/scenario"
)

var ErrNoCandidate = errors.New("optim: no parameter combination could be evaluated")

// Objective scores one parameter combination; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	evaluated  int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Evaluated reports how many combinations the last search scored.
func (g *GridSearch) Evaluated() int { return g.evaluated }

// Search scores every combination in the grid. Combinations the objective
// rejects are skipped; the search fails only if none could be scored.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	g.evaluated = 0

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}

	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, err := objective(ctx, current)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		}
		g.evaluated++

		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// RideObjective runs scn with base overridden by the candidate parameters
// and returns the named metric, negated when maximize is set.
func RideObjective(base *config.Config, scn *scenario.Scenario, metric string, maximize bool) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := *base
		for name, v := range params {
			if err := cfg.SetParam(name, v); err != nil {
				return 0, err
			}
		}

		sim := ride.New(&cfg)
		for _, m := range metrics.Default() {
			sim.AddMetric(m)
		}
		result, err := sim.Run(ctx, scn)
		if err != nil {
			return 0, err
		}

		val, ok := result.Metrics[metric]
		if !ok {
			return 0, errors.New("optim: unknown metric " + metric)
		}
		if maximize {
			val = -val
		}
		return val, nil
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
