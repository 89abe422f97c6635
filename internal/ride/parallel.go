package ride

import (
	"context"
	"sync"

	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/scenario"
)

// Ensemble runs several scenarios against the same profile concurrently.
type Ensemble struct {
	cfg        *config.Config
	newMetrics func() []Metric
}

// NewEnsemble takes a metrics factory because metrics keep per-run state.
func NewEnsemble(cfg *config.Config, newMetrics func() []Metric) *Ensemble {
	return &Ensemble{cfg: cfg, newMetrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context, scns []*scenario.Scenario) ([]*Result, error) {
	results := make([]*Result, len(scns))
	errs := make([]error, len(scns))

	var wg sync.WaitGroup
	for i, scn := range scns {
		wg.Add(1)
		go func(idx int, scn *scenario.Scenario) {
			defer wg.Done()

			cfgCopy := *e.cfg
			s := New(&cfgCopy)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}
			results[idx], errs[idx] = s.Run(ctx, scn)
		}(i, scn)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
