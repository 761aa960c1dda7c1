package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
	_ "modernc.org/sqlite"
)

// SQLiteEventStore implements RunStore on a single SQLite file.
type SQLiteEventStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteEventStore opens (creating if needed) the database at dbPath.
func NewSQLiteEventStore(dbPath string) (*SQLiteEventStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteEventStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteEventStore) Path() string {
	return s.dbPath
}

// SaveRun writes the run row, its events and its edges in one transaction.
func (s *SQLiteEventStore) SaveRun(ctx context.Context, info RunInfo, g *eventgraph.Graph, frontiers []int) error {
	if info.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	if frontiers == nil {
		frontiers = []int{}
	}
	frontiersJSON, err := json.Marshal(frontiers)
	if err != nil {
		return fmt.Errorf("failed to encode frontiers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Events and edges cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, info.RunID); err != nil {
		return fmt.Errorf("failed to replace run %s: %w", info.RunID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, experiment_id, variant, threads, coupling, seed,
			coherence_window, final_tick, frontiers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.RunID, info.ExperimentID, info.Variant, info.Threads, info.Coupling, int64(info.Seed),
		info.Window, info.FinalTick, string(frontiersJSON), info.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", info.RunID, err)
	}

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, id, created_at, domain) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer evStmt.Close()

	for _, ev := range g.Events() {
		var domain sql.NullInt64
		if ev.Domain != nil {
			domain = sql.NullInt64{Int64: int64(*ev.Domain), Valid: true}
		}
		if _, err := evStmt.ExecContext(ctx, info.RunID, ev.ID, ev.CreatedAt, domain); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", ev.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (run_id, seq, source, target, tick) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for i, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, info.RunID, i, e.Source, e.Target, e.Tick); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadRun reads a run and replays it into a fresh graph.
func (s *SQLiteEventStore) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	info, frontiers, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	events, err := s.getEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	edges, err := s.getEdges(ctx, runID)
	if err != nil {
		return nil, err
	}

	g, err := Rebuild(events, edges)
	if err != nil {
		return nil, fmt.Errorf("rebuild run %s: %w", runID, err)
	}
	info.Events = g.Len()
	info.Edges = g.EdgeCount()

	return &StoredRun{Info: info, Graph: g, Frontiers: frontiers}, nil
}

func (s *SQLiteEventStore) getRun(ctx context.Context, runID string) (RunInfo, []int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, experiment_id, variant, threads, coupling, seed,
			coherence_window, final_tick, frontiers, created_at
		FROM runs WHERE run_id = ?`, runID)

	info, frontiersJSON, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}

	var frontiers []int
	if err := json.Unmarshal([]byte(frontiersJSON), &frontiers); err != nil {
		return RunInfo{}, nil, fmt.Errorf("failed to decode frontiers of %s: %w", runID, err)
	}
	return info, frontiers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, string, error) {
	var (
		info      RunInfo
		seed      int64
		frontiers string
		createdAt string
	)
	err := row.Scan(&info.RunID, &info.ExperimentID, &info.Variant, &info.Threads, &info.Coupling,
		&seed, &info.Window, &info.FinalTick, &frontiers, &createdAt)
	if err != nil {
		return RunInfo{}, "", err
	}
	info.Seed = uint64(seed)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		info.CreatedAt = t
	}
	return info, frontiers, nil
}

func (s *SQLiteEventStore) getEvents(ctx context.Context, runID string) ([]eventgraph.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, domain FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []eventgraph.Event
	for rows.Next() {
		var (
			ev     eventgraph.Event
			domain sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.CreatedAt, &domain); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if domain.Valid {
			d := int(domain.Int64)
			ev.Domain = &d
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteEventStore) getEdges(ctx context.Context, runID string) ([]eventgraph.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, tick FROM edges WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []eventgraph.Edge
	for rows.Next() {
		var e eventgraph.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Tick); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListRuns returns stored runs ordered by run id, with event and edge counts.
func (s *SQLiteEventStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, experiment_id, variant, threads, coupling, seed,
			coherence_window, final_tick, frontiers, created_at
		FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var infos []RunInfo
	for rows.Next() {
		info, _, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Counts are queried after the cursor is released; the pool holds one
	// connection.
	for i := range infos {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE run_id = ?`, infos[i].RunID).Scan(&infos[i].Events); err != nil {
			return nil, fmt.Errorf("failed to count events: %w", err)
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM edges WHERE run_id = ?`, infos[i].RunID).Scan(&infos[i].Edges); err != nil {
			return nil, fmt.Errorf("failed to count edges: %w", err)
		}
	}
	return infos, nil
}

// DeleteRun removes a run with its events and edges.
func (s *SQLiteEventStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}
