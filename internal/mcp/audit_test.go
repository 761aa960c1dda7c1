package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bcqm-vi/spacetime/internal/store"
)

func readAuditEntries(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	var logger *AuditLogger
	logger.Log(AuditEntry{Tool: "test"})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on nil logger returned error: %v", err)
	}
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	logger.Log(AuditEntry{Timestamp: time.Now(), Tool: "geometry_graph", DurationMs: 42, Status: "success"})
	logger.Log(AuditEntry{Timestamp: time.Now(), Tool: "geometry_graph", Status: "error", Error: "boom"})
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readAuditEntries(t, filepath.Join(dir, AuditFile))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].DurationMs != 42 || entries[0].Status != "success" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Error != "boom" {
		t.Errorf("second entry error = %q, want boom", entries[1].Error)
	}

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit log permissions = %o, want 600", perm)
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: "geometry_list_runs", Status: "success"})
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readAuditEntries(t, filepath.Join(dir, AuditFile))); got != 50 {
		t.Errorf("got %d entries, want 50", got)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	tVal, seed := 12, uint64(3)
	got := sanitizeToolParams(map[string]interface{}{
		"run_id":  "exp__base__N4__n0.500__seed3",
		"t":       &tVal,
		"window":  (*int)(nil),
		"seed":    &seed,
		"format":  "",
		"comment": "free text",
	})

	want := map[string]string{
		"run_id":       "exp__base__N4__n0.500__seed3",
		"t":            "12",
		"seed":         "3",
		"_param_count": "4",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("params[%q] = %q, want %q", k, got[k], v)
		}
	}
	if sanitizeToolParams(nil) != nil {
		t.Error("sanitizeToolParams(nil) should be nil")
	}
}

func TestServer_AuditsToolCalls(t *testing.T) {
	dir := t.TempDir()
	server, err := NewServer(&Config{
		Name:     "test",
		Version:  "v0",
		Store:    store.NewInMemoryRunStore(),
		AuditDir: dir,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, _, err := server.handleListRuns(ctx, &sdk.CallToolRequest{}, ListRunsInput{}); err != nil {
		t.Fatal(err)
	}
	_, _, err = server.handleGraph(ctx, &sdk.CallToolRequest{}, GraphInput{RunID: "missing", Format: "dot"})
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("handleGraph error = %v, want ErrRunNotFound", err)
	}
	if err := server.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readAuditEntries(t, filepath.Join(dir, AuditFile))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Tool != "geometry_list_runs" || entries[0].Status != "success" {
		t.Errorf("first entry = %+v", entries[0])
	}
	last := entries[1]
	if last.Tool != "geometry_graph" || last.Status != "error" {
		t.Errorf("second entry = %+v", last)
	}
	if last.Params["run_id"] != "missing" || last.Params["format"] != "dot" {
		t.Errorf("second entry params = %v", last.Params)
	}
}
