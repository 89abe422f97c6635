package ride

import (
	"context"

	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/scenario"
)

type Simulator struct {
	cfg       *config.Config
	metrics   []Metric
	observers []Observer
}

func New(cfg *config.Config) *Simulator {
	return &Simulator{
		cfg:       cfg,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run plays the whole scenario. On cancellation the partial result is
// returned together with the context error.
func (s *Simulator) Run(ctx context.Context, scn *scenario.Scenario) (*Result, error) {
	r, err := NewRide(s.cfg, scn)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Scenario: scn.Name,
		Profile:  s.cfg.Name,
		Dt:       s.cfg.Dt,
		Samples:  make([]Sample, 0, r.TotalTicks()),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for !r.Done() {
		select {
		case <-ctx.Done():
			s.finish(result, r)
			return result, ctx.Err()
		default:
		}

		sample, err := r.Next()
		if err != nil {
			s.finish(result, r)
			return result, err
		}

		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnTick(sample)
		}
		result.Samples = append(result.Samples, sample)
	}

	s.finish(result, r)
	return result, nil
}

func (s *Simulator) finish(result *Result, r *Ride) {
	result.Ticks = len(result.Samples)
	result.HoldActivations = r.HoldActivations()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
