// Package archive exports stored runs to self-contained files and imports
// them back, so runs can move between run databases.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
	"github.com/bcqm-vi/spacetime/internal/store"
)

// Extension is appended to run ids by DefaultPath.
const Extension = ".run.gz"

// ErrRunExists is returned by Import when the run id is already stored and
// overwrite was not requested.
var ErrRunExists = errors.New("run already exists")

// Payload is the archived content of one run. Degrees are carried inside the
// events for readers of the file but are recomputed on import.
type Payload struct {
	Info      store.RunInfo      `json:"info"`
	Events    []eventgraph.Event `json:"events"`
	Edges     []eventgraph.Edge  `json:"edges"`
	Frontiers []int              `json:"frontiers"`
}

// DefaultPath returns dir/<run_id>.run.gz.
func DefaultPath(dir, runID string) string {
	return filepath.Join(dir, runID+Extension)
}

// Export writes the run stored under runID to path.
func Export(ctx context.Context, runs store.RunStore, runID, path string) (*Header, error) {
	run, err := runs.LoadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	p := &Payload{
		Info:      run.Info,
		Events:    run.Graph.Events(),
		Edges:     run.Graph.Edges(),
		Frontiers: run.Frontiers,
	}
	return Write(path, p, time.Now())
}

// Import reads the archive at path into runs and returns the stored run info.
// An existing run with the same id is replaced only when overwrite is set.
func Import(ctx context.Context, runs store.RunStore, path string, overwrite bool) (store.RunInfo, error) {
	_, p, err := Read(path)
	if err != nil {
		return store.RunInfo{}, err
	}
	if p.Info.RunID == "" {
		return store.RunInfo{}, fmt.Errorf("archive %s has no run id", path)
	}

	if !overwrite {
		_, err := runs.LoadRun(ctx, p.Info.RunID)
		switch {
		case err == nil:
			return store.RunInfo{}, fmt.Errorf("import %s: %w", p.Info.RunID, ErrRunExists)
		case !errors.Is(err, store.ErrRunNotFound):
			return store.RunInfo{}, fmt.Errorf("failed to check existing run: %w", err)
		}
	}

	g, err := store.Rebuild(p.Events, p.Edges)
	if err != nil {
		return store.RunInfo{}, fmt.Errorf("archive %s: %w", path, err)
	}
	if err := runs.SaveRun(ctx, p.Info, g, p.Frontiers); err != nil {
		return store.RunInfo{}, fmt.Errorf("failed to save run: %w", err)
	}

	info := p.Info
	info.Events = g.Len()
	info.Edges = g.EdgeCount()
	return info, nil
}
