package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/ride"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string             `json:"id"`
	Scenario        string             `json:"scenario"`
	Profile         string             `json:"profile"`
	Timestamp       time.Time          `json:"timestamp"`
	Dt              float64            `json:"dt"`
	Duration        float64            `json:"duration"`
	Ticks           int                `json:"ticks"`
	HoldActivations int                `json:"hold_activations"`
	Metrics         map[string]float64 `json:"metrics"`
	Config          *config.Config     `json:"config,omitempty"`
}

var csvHeader = []string{
	"tick", "time", "segment", "erpm", "braking", "accel_diff", "balance_offset",
	"pitch", "balance_pitch", "wheelslip", "target", "setpoint", "phase", "hold_counter",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// RunDir is the directory holding a run's files.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) Save(cfg *config.Config, result *ride.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", result.Scenario, time.Now().UnixNano())
	runDir := s.RunDir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Scenario:        result.Scenario,
		Profile:         result.Profile,
		Timestamp:       time.Now(),
		Dt:              result.Dt,
		Duration:        float64(result.Ticks) * result.Dt,
		Ticks:           result.Ticks,
		HoldActivations: result.HoldActivations,
		Metrics:         result.Metrics,
		Config:          cfg,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "ticks.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Samples); err != nil {
		return "", err
	}

	return runID, nil
}

// WriteCSV writes samples in the ticks.csv layout, header first.
func WriteCSV(out io.Writer, samples []ride.Sample) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, smp := range samples {
		row := []string{
			strconv.Itoa(smp.Tick),
			formatFloat(smp.Time),
			smp.Segment,
			formatFloat(smp.Erpm),
			strconv.FormatBool(smp.Braking),
			formatFloat(smp.AccelDiff),
			formatFloat(smp.BalanceOffset),
			formatFloat(smp.Pitch),
			formatFloat(smp.BalancePitch),
			strconv.FormatBool(smp.Wheelslip),
			formatFloat(smp.Target),
			formatFloat(smp.Setpoint),
			smp.Phase.String(),
			strconv.Itoa(smp.HoldCounter),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns all stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSamples reads the per-tick samples back from ticks.csv.
func (s *Store) LoadSamples(runID string) ([]ride.Sample, error) {
	csvPath := filepath.Join(s.baseDir, runID, "ticks.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []ride.Sample{}, nil
	}

	samples := make([]ride.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		smp, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", csvPath, i+2, err)
		}
		samples = append(samples, smp)
	}

	return samples, nil
}

func parseRow(record []string) (ride.Sample, error) {
	var (
		smp  ride.Sample
		err  error
		errs []error
	)
	num := func(field string) float64 {
		v, perr := strconv.ParseFloat(field, 64)
		if perr != nil {
			errs = append(errs, perr)
		}
		return v
	}
	flag := func(field string) bool {
		v, perr := strconv.ParseBool(field)
		if perr != nil {
			errs = append(errs, perr)
		}
		return v
	}

	smp.Tick, err = strconv.Atoi(record[0])
	if err != nil {
		return smp, err
	}
	smp.Time = num(record[1])
	smp.Segment = record[2]
	smp.Erpm = num(record[3])
	smp.Braking = flag(record[4])
	smp.AccelDiff = num(record[5])
	smp.BalanceOffset = num(record[6])
	smp.Pitch = num(record[7])
	smp.BalancePitch = num(record[8])
	smp.Wheelslip = flag(record[9])
	smp.Target = num(record[10])
	smp.Setpoint = num(record[11])
	smp.Phase, err = braketilt.ParsePhase(record[12])
	if err != nil {
		return smp, err
	}
	smp.PhaseName = smp.Phase.String()
	smp.HoldCounter, err = strconv.Atoi(record[13])
	if err != nil {
		return smp, err
	}
	if len(errs) > 0 {
		return smp, errs[0]
	}
	return smp, nil
}

// LoadResult rebuilds a ride result from a stored run.
func (s *Store) LoadResult(runID string) (*RunMetadata, *ride.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &ride.Result{
		Scenario:        meta.Scenario,
		Profile:         meta.Profile,
		Dt:              meta.Dt,
		Samples:         samples,
		Metrics:         meta.Metrics,
		Ticks:           len(samples),
		HoldActivations: meta.HoldActivations,
	}, nil
}
