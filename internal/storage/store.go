// Package storage persists runs: a SQLite catalog (runs.db) with one row per
// run and a states.csv trajectory in a directory per run.
package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sim"

	_ "modernc.org/sqlite" // SQLite driver
)

var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

type Store struct {
	baseDir string
	db      *sql.DB
}

// Open creates baseDir if needed and opens its catalog.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{baseDir: baseDir, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Stepper    string             `json:"stepper"`
	Steps      int                `json:"steps"`
	StepsTaken int                `json:"steps_taken"`
	Duration   float64            `json:"duration"`
	Tau        float64            `json:"tau"`
	Created    time.Time          `json:"created"`
	Params     map[string]float64 `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
}

// Run is what Save records: the configuration, the (possibly partial)
// result and the error that ended the run, if any.
type Run struct {
	Model    string
	Stepper  string
	Duration float64
	Steps    int
	Params   map[string]float64
	Result   *sim.Result
	Err      error
}

func status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, dynamo.ErrContextCanceled):
		return StatusCanceled
	default:
		return StatusFailed
	}
}

// Save writes the trajectory and catalogs the run. It returns the new id.
func (s *Store) Save(ctx context.Context, run Run) (string, error) {
	if run.Result == nil {
		return "", fmt.Errorf("run has no result")
	}

	created := time.Now().UTC()
	runID := fmt.Sprintf("%s_%s_%d", run.Model, run.Stepper, created.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), run.Result); err != nil {
		os.RemoveAll(runDir)
		return "", fmt.Errorf("failed to write states: %w", err)
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      run.Model,
		Stepper:    run.Stepper,
		Steps:      run.Steps,
		StepsTaken: run.Result.StepsTaken,
		Duration:   run.Duration,
		Tau:        run.Duration / float64(run.Steps),
		Created:    created,
		Params:     run.Params,
		Metrics:    run.Result.Metrics,
		Status:     status(run.Err),
	}
	if run.Err != nil {
		meta.Error = run.Err.Error()
	}
	if err := s.insert(ctx, meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func (s *Store) insert(ctx context.Context, m RunMetadata) error {
	params, err := json.Marshal(m.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	metrics, err := json.Marshal(finite(m.Metrics))
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, model, stepper, steps, steps_taken, duration, tau, created, params, metrics, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Model, m.Stepper, m.Steps, m.StepsTaken, m.Duration, m.Tau,
		m.Created.Format(timeLayout), string(params), string(metrics), m.Status, m.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func writeStates(path string, result *sim.Result) error {
	if len(result.Times) != len(result.States) {
		return fmt.Errorf("%d times for %d states", len(result.Times), len(result.States))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(result.States) > 0 {
		header := []string{"time"}
		for i := range result.States[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for i, state := range result.States {
		row := make([]string, 0, len(state)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, val := range state {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// finite drops NaN and Inf values, which JSON cannot encode.
func finite(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

const selectRuns = `SELECT id, model, stepper, steps, steps_taken, duration, tau, created, params, metrics, status, error FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunMetadata, error) {
	var (
		m               RunMetadata
		created         string
		params, metrics sql.NullString
		errText         sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Model, &m.Stepper, &m.Steps, &m.StepsTaken, &m.Duration, &m.Tau,
		&created, &params, &metrics, &m.Status, &errText); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp: %w", m.ID, err)
	}
	m.Created = t
	m.Error = errText.String
	if params.Valid && params.String != "null" {
		if err := json.Unmarshal([]byte(params.String), &m.Params); err != nil {
			return nil, fmt.Errorf("run %s: bad params: %w", m.ID, err)
		}
	}
	if metrics.Valid && metrics.String != "null" {
		if err := json.Unmarshal([]byte(metrics.String), &m.Metrics); err != nil {
			return nil, fmt.Errorf("run %s: bad metrics: %w", m.ID, err)
		}
	}
	return &m, nil
}

// List returns all runs, newest first.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *m)
	}
	return runs, rows.Err()
}

func (s *Store) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	m, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return m, err
}

// Delete removes the catalog row and the run directory.
func (s *Store) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}

func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("states.csv line %d: %w", i+1, err)
		}
		times = append(times, t)

		state := make(dynamo.State, len(record)-1)
		for j := 1; j < len(record); j++ {
			if state[j-1], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, nil, fmt.Errorf("states.csv line %d: %w", i+1, err)
			}
		}
		states = append(states, state)
	}

	return states, times, nil
}
