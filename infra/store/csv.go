package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kilianp07/evfleet/core/model"
	"github.com/kilianp07/evfleet/core/results"
	corestore "github.com/kilianp07/evfleet/core/store"
)

// Column headers of the delimiter-separated datasets.
var (
	intervalHeader = []string{"ziel", "szenario", "faktor", "jahr_von", "jahr_bis", "wert_von", "wert_bis"}
	seriesHeader   = []string{"ts_id", "jahr", "wert"}
	resultHeader   = []string{"ziel", "jahr", "serie", "wert", "szenario"}
)

// CSVConfig locates the three datasets. File names are relative to Dir.
type CSVConfig struct {
	Dir           string `json:"dir"`
	IntervalsFile string `json:"intervals_file"`
	SeriesFile    string `json:"time_series_file"`
	ResultsFile   string `json:"results_file"`
	// Delimiter defaults to ';'.
	Delimiter string `json:"delimiter"`
}

// SetDefaults applies the dataset names used by the dashboard.
func (c *CSVConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data"
	}
	if c.IntervalsFile == "" {
		c.IntervalsFile = "scenario_intervals.csv"
	}
	if c.SeriesFile == "" {
		c.SeriesFile = "time_series.csv"
	}
	if c.ResultsFile == "" {
		c.ResultsFile = "results.csv"
	}
	if c.Delimiter == "" {
		c.Delimiter = ";"
	}
}

// CSVStore reads and writes the datasets as delimiter-separated text files.
// Writes go to a temporary file that replaces the dataset atomically.
type CSVStore struct {
	mu        sync.Mutex
	intervals string
	series    string
	results   string
	comma     rune
}

// NewCSVStore creates a store for cfg. Files are not required to exist yet.
func NewCSVStore(cfg CSVConfig) (*CSVStore, error) {
	cfg.SetDefaults()
	if len([]rune(cfg.Delimiter)) != 1 {
		return nil, fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &CSVStore{
		intervals: filepath.Join(cfg.Dir, cfg.IntervalsFile),
		series:    filepath.Join(cfg.Dir, cfg.SeriesFile),
		results:   filepath.Join(cfg.Dir, cfg.ResultsFile),
		comma:     []rune(cfg.Delimiter)[0],
	}, nil
}

// LoadIntervals returns the intervals of target in file order.
func (s *CSVStore) LoadIntervals(_ context.Context, target model.Target) ([]model.FactorInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readIntervals()
	if err != nil {
		return nil, err
	}
	var out []model.FactorInterval
	for _, iv := range all {
		if iv.Target == target {
			out = append(out, iv)
		}
	}
	return out, nil
}

// SaveIntervals replaces the rows of target and keeps those of other targets.
func (s *CSVStore) SaveIntervals(_ context.Context, target model.Target, intervals []model.FactorInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readIntervals()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	var keep []model.FactorInterval
	for _, iv := range all {
		if iv.Target != target {
			keep = append(keep, iv)
		}
	}
	for _, iv := range intervals {
		iv.Target = target
		keep = append(keep, iv)
	}
	records := make([][]string, 0, len(keep))
	for _, iv := range keep {
		records = append(records, []string{
			string(iv.Target), iv.Scenario.String(), iv.Factor.String(),
			strconv.Itoa(iv.YearFrom), strconv.Itoa(iv.YearTo),
			formatFloat(iv.ValueFrom), formatFloat(iv.ValueTo),
		})
	}
	return s.write(s.intervals, intervalHeader, records)
}

// Targets lists the distinct targets of the interval dataset.
func (s *CSVStore) Targets(context.Context) ([]model.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readIntervals()
	if err != nil {
		return nil, err
	}
	seen := map[model.Target]bool{}
	var out []model.Target
	for _, iv := range all {
		if !seen[iv.Target] {
			seen[iv.Target] = true
			out = append(out, iv.Target)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// LoadObservations reads the historical dataset.
func (s *CSVStore) LoadObservations(_ context.Context, ids ...int) ([]model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Observation
	err := s.read(s.series, seriesHeader, func(line int, f fields) error {
		id, err := f.integer("ts_id")
		if err != nil {
			return err
		}
		year, err := f.integer("jahr")
		if err != nil {
			return err
		}
		v, err := f.float("wert")
		if err != nil {
			return err
		}
		out = append(out, model.Observation{SeriesID: id, Year: year, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corestore.FilterObservations(out, ids...), nil
}

// SaveObservations replaces the historical dataset.
func (s *CSVStore) SaveObservations(_ context.Context, obs []model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([][]string, 0, len(obs))
	for _, o := range obs {
		records = append(records, []string{strconv.Itoa(o.SeriesID), strconv.Itoa(o.Year), formatFloat(o.Value)})
	}
	return s.write(s.series, seriesHeader, records)
}

// SaveResults replaces the result rows of target.
func (s *CSVStore) SaveResults(_ context.Context, target model.Target, rows []results.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.readResults()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	var records [][]string
	for _, r := range existing {
		if r.Target != target {
			records = append(records, resultRecord(r))
		}
	}
	for _, r := range rows {
		r.Target = target
		records = append(records, resultRecord(r))
	}
	return s.write(s.results, resultHeader, records)
}

// LoadResults returns the stored rows of target. A missing results file
// yields no rows.
func (s *CSVStore) LoadResults(_ context.Context, target model.Target) ([]results.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readResults()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []results.Row
	for _, r := range all {
		if r.Target == target {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close is a no-op; files are closed after every operation.
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) readIntervals() ([]model.FactorInterval, error) {
	var out []model.FactorInterval
	err := s.read(s.intervals, intervalHeader, func(line int, f fields) error {
		sc, err := model.ParseScenario(f.str("szenario"))
		if err != nil {
			return err
		}
		fa, err := model.ParseFactor(f.str("faktor"))
		if err != nil {
			return err
		}
		iv := model.FactorInterval{Target: model.Target(f.str("ziel")), Scenario: sc, Factor: fa}
		if iv.YearFrom, err = f.integer("jahr_von"); err != nil {
			return err
		}
		if iv.YearTo, err = f.integer("jahr_bis"); err != nil {
			return err
		}
		if iv.ValueFrom, err = f.float("wert_von"); err != nil {
			return err
		}
		if iv.ValueTo, err = f.float("wert_bis"); err != nil {
			return err
		}
		out = append(out, iv)
		return nil
	})
	return out, err
}

func (s *CSVStore) readResults() ([]results.Row, error) {
	var out []results.Row
	err := s.read(s.results, resultHeader, func(line int, f fields) error {
		sc, err := model.ParseScenario(f.str("szenario"))
		if err != nil {
			return err
		}
		year, err := f.integer("jahr")
		if err != nil {
			return err
		}
		v, err := f.float("wert")
		if err != nil {
			return err
		}
		out = append(out, results.Row{Target: model.Target(f.str("ziel")), Year: year, Series: f.str("serie"), Value: v, Scenario: sc})
		return nil
	})
	return out, err
}

// read parses path row by row. A missing file is reported as
// ErrDataUnavailable wrapping os.ErrNotExist.
func (s *CSVStore) read(path string, header []string, fn func(line int, f fields) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	defer func() { _ = file.Close() }()
	r := csv.NewReader(file)
	r.Comma = s.comma
	r.TrimLeadingSpace = true
	head, err := r.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: read header: %v", model.ErrDataUnavailable, path, err)
	}
	idx := map[string]int{}
	for i, h := range head {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range header {
		if _, ok := idx[h]; !ok {
			return fmt.Errorf("%w: %s: missing column %q", model.ErrDataUnavailable, path, h)
		}
	}
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", model.ErrDataUnavailable, path, line, err)
		}
		if err := fn(line, fields{idx: idx, rec: rec}); err != nil {
			return fmt.Errorf("%w: %s line %d: %v", model.ErrDataUnavailable, path, line, err)
		}
	}
}

func (s *CSVStore) write(path string, header []string, records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	w := csv.NewWriter(tmp)
	w.Comma = s.comma
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

type fields struct {
	idx map[string]int
	rec []string
}

func (f fields) str(col string) string {
	i := f.idx[col]
	if i >= len(f.rec) {
		return ""
	}
	return strings.TrimSpace(f.rec[i])
}

func (f fields) integer(col string) (int, error) {
	v, err := strconv.Atoi(f.str(col))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func (f fields) float(col string) (float64, error) {
	raw := f.str(col)
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func resultRecord(r results.Row) []string {
	return []string{string(r.Target), strconv.Itoa(r.Year), r.Series, formatFloat(r.Value), r.Scenario.String()}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
