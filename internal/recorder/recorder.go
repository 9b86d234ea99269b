// Package recorder persists perspective grid cycles to sqlite so replays
// can be compared across configurations.
package recorder

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/config"
	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/perspective"
	"github.com/banshee-data/perspective.grid/internal/pipeline"
	"github.com/banshee-data/perspective.grid/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoRun is returned by RecordCycle before StartRun.
var ErrNoRun = errors.New("recorder: no run started")

// Run is one recorded replay session.
type Run struct {
	RunID      string          `json:"run_id"`
	Label      string          `json:"label"`
	ConfigJSON json.RawMessage `json:"config_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// CircleRecord is the stored form of a candidate circle.
type CircleRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// RowRecord is the stored form of a grid row.
type RowRecord struct {
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// CycleRecord is one camera's result within a recorded cycle.
type CycleRecord struct {
	RunID          string         `json:"run_id"`
	CycleIndex     int            `json:"cycle_index"`
	Camera         string         `json:"camera"`
	RowCount       int            `json:"row_count"`
	CandidateCount int            `json:"candidate_count"`
	HorizonLeft    float64        `json:"horizon_left"`
	HorizonRight   float64        `json:"horizon_right"`
	Elapsed        time.Duration  `json:"elapsed_ns"`
	Overrun        bool           `json:"overrun"`
	Rows           []RowRecord    `json:"rows,omitempty"`
	Candidates     []CircleRecord `json:"candidates,omitempty"`
}

// Recorder writes cycles of the current run. It implements pipeline.Sink.
type Recorder struct {
	db    *sql.DB
	clock timeutil.Clock

	mu    sync.Mutex
	runID string
}

var _ pipeline.Sink = (*Recorder)(nil)

// Open opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db, clock: timeutil.RealClock{}}, nil
}

// migrateUp applies every embedded migration not yet recorded.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m.Close would close db as well, so it is left to the garbage collector.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger routes golang-migrate output to the diag stream.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Diagf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartRun creates a new run and makes it current. cfg, when non-nil, is
// stored alongside for reproducibility.
func (r *Recorder) StartRun(label string, cfg *config.VisionConfig) (string, error) {
	var configJSON interface{}
	if cfg != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to encode run config: %w", err)
		}
		configJSON = string(data)
	}

	runID := uuid.New().String()
	_, err := r.db.Exec(`INSERT INTO grid_runs (run_id, label, config_json, created_at) VALUES (?, ?, ?, ?)`,
		runID, label, configJSON, r.clock.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	r.mu.Lock()
	r.runID = runID
	r.mu.Unlock()
	monitoring.Diagf("recording run %s (%s)", runID, label)
	return runID, nil
}

// CurrentRun returns the run cycles are recorded into.
func (r *Recorder) CurrentRun() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// RecordCycle stores both cameras' results of one cycle under the
// current run.
func (r *Recorder) RecordCycle(index int, out pipeline.Output) error {
	runID := r.CurrentRun()
	if runID == "" {
		return ErrNoRun
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cycle insert: %w", err)
	}
	defer tx.Rollback()

	for _, p := range camera.Positions {
		if err := insertCycle(tx, runID, index, p, out); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cycle %d: %w", index, err)
	}
	return nil
}

func insertCycle(tx *sql.Tx, runID string, index int, p camera.Position, out pipeline.Output) error {
	grid := out.At(p)
	horizon := out.Matrices.At(p).Horizon

	rowsJSON, err := json.Marshal(rowRecords(grid.Rows))
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	candidatesJSON, err := json.Marshal(circleRecords(grid.Candidates))
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO grid_cycles (
			run_id, cycle_index, camera, row_count, candidate_count,
			horizon_left, horizon_right, elapsed_ns, overrun,
			rows_json, candidates_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, index, p.String(), len(grid.Rows), len(grid.Candidates.Circles),
		horizon.LeftY, horizon.RightY, out.Elapsed.Nanoseconds(), out.Overrun,
		string(rowsJSON), string(candidatesJSON),
	)
	if err != nil {
		return fmt.Errorf("insert cycle %d %s: %w", index, p, err)
	}
	return nil
}

func rowRecords(rows []perspective.Row) []RowRecord {
	out := make([]RowRecord, len(rows))
	for i, r := range rows {
		out[i] = RowRecord{Y: r.CenterY, R: r.Radius}
	}
	return out
}

func circleRecords(c perspective.Candidates) []CircleRecord {
	out := make([]CircleRecord, len(c.Circles))
	for i, circle := range c.Circles {
		out[i] = CircleRecord{X: circle.Center.X, Y: circle.Center.Y, R: circle.Radius}
	}
	return out
}

// ListRuns returns all runs, newest first.
func (r *Recorder) ListRuns() ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT run_id, label, config_json, created_at
		FROM grid_runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var configJSON sql.NullString
		if err := rows.Scan(&run.RunID, &run.Label, &configJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if configJSON.Valid {
			run.ConfigJSON = json.RawMessage(configJSON.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListCycles returns every recorded camera cycle of runID in cycle order,
// top camera first.
func (r *Recorder) ListCycles(runID string) ([]CycleRecord, error) {
	rows, err := r.db.Query(`
		SELECT run_id, cycle_index, camera, row_count, candidate_count,
		       horizon_left, horizon_right, elapsed_ns, overrun,
		       rows_json, candidates_json
		FROM grid_cycles
		WHERE run_id = ?
		ORDER BY cycle_index, camera DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []CycleRecord
	for rows.Next() {
		var c CycleRecord
		var elapsedNs int64
		var rowsJSON, candidatesJSON sql.NullString
		if err := rows.Scan(
			&c.RunID, &c.CycleIndex, &c.Camera, &c.RowCount, &c.CandidateCount,
			&c.HorizonLeft, &c.HorizonRight, &elapsedNs, &c.Overrun,
			&rowsJSON, &candidatesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Elapsed = time.Duration(elapsedNs)
		if rowsJSON.Valid {
			if err := json.Unmarshal([]byte(rowsJSON.String), &c.Rows); err != nil {
				return nil, fmt.Errorf("decode rows of cycle %d: %w", c.CycleIndex, err)
			}
		}
		if candidatesJSON.Valid {
			if err := json.Unmarshal([]byte(candidatesJSON.String), &c.Candidates); err != nil {
				return nil, fmt.Errorf("decode candidates of cycle %d: %w", c.CycleIndex, err)
			}
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}
