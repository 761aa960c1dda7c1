package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

type memoryRun struct {
	info      RunInfo
	events    []eventgraph.Event
	edges     []eventgraph.Edge
	frontiers []int
}

// InMemoryRunStore implements RunStore for testing and one-shot CLI use.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]memoryRun
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]memoryRun)}
}

// SaveRun stores a copy of g.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, info RunInfo, g *eventgraph.Graph, frontiers []int) error {
	if info.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	info.Events = g.Len()
	info.Edges = g.EdgeCount()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[info.RunID] = memoryRun{
		info:      info,
		events:    g.Events(),
		edges:     g.Edges(),
		frontiers: slices.Clone(frontiers),
	}
	return nil
}

// LoadRun rebuilds a fresh graph from the stored copy.
func (s *InMemoryRunStore) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	g, err := Rebuild(run.events, run.edges)
	if err != nil {
		return nil, fmt.Errorf("rebuild run %s: %w", runID, err)
	}
	return &StoredRun{Info: run.info, Graph: g, Frontiers: slices.Clone(run.frontiers)}, nil
}

// ListRuns returns stored runs ordered by run id.
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]RunInfo, 0, len(s.runs))
	for _, run := range s.runs {
		infos = append(infos, run.info)
	}
	slices.SortFunc(infos, func(a, b RunInfo) int { return strings.Compare(a.RunID, b.RunID) })
	return infos, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	delete(s.runs, runID)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}
