package sqlite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/apicontract/internal/store/connector"
)

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
		want   string
	}{
		{name: "explicit dsn", config: map[string]interface{}{"dsn": "file:x.db"}, want: "file:x.db"},
		{name: "path", config: map[string]interface{}{"path": "/tmp/r.db"}, want: "file:/tmp/r.db?_busy_timeout=5000&_fk=1"},
		{name: "empty", config: map[string]interface{}{}, want: ""},
		{name: "wrong type", config: map[string]interface{}{"path": 5}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			if err := store.Load(tt.config); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if store.DSN != tt.want {
				t.Errorf("Load() DSN = %q, want %q", store.DSN, tt.want)
			}
		})
	}
}

func TestStore_ConnectDefaultsToMemory(t *testing.T) {
	store := NewStore()
	if _, err := store.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.DSN != ":memory:" {
		t.Errorf("DSN = %q, want :memory:", store.DSN)
	}
}

func TestStore_CloseWithoutConnect(t *testing.T) {
	if err := NewStore().Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestStore_RecordAndList(t *testing.T) {
	store := NewStore()
	if err := store.Load((&Config{Path: filepath.Join(t.TempDir(), "runs.db")}).ToMap()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := store.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = store.Close() }()

	th := connector.TableNames{Runs: "runs", Extracted: "extracted"}
	if err := store.Ensure(th); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := store.Ensure(th); err != nil {
		t.Fatalf("Ensure should be idempotent: %v", err)
	}

	for i, name := range []string{"a", "b", "c"} {
		run := connector.Run{Suite: "s", Case: name, Method: "GET", URL: "http://h/" + name, StatusCode: 200 + i, Passed: i != 1}
		if i == 1 {
			run.Failures = []string{"status code: expected 200, got 201"}
			run.Extracted = map[string]string{"k": "v"}
		}
		if _, err := store.RecordRun(th, run); err != nil {
			t.Fatalf("RecordRun(%s): %v", name, err)
		}
	}

	runs, err := store.ListRuns(th, "s", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Case != "c" || runs[1].Case != "b" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[1].Passed || runs[1].StatusCode != 201 || runs[1].Extracted["k"] != "v" {
		t.Fatalf("unexpected failed run: %+v", runs[1])
	}
	if !strings.Contains(runs[1].Failures[0], "expected 200") {
		t.Fatalf("unexpected failures: %v", runs[1].Failures)
	}

	none, err := store.ListRuns(th, "other", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no runs for other suite, got %v (%v)", none, err)
	}
}
