package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/laserlines/internal/store"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", FinishedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", FinishedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", FinishedAt: now.AddDate(0, 0, -1)},
		{ID: "run4", FinishedAt: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.ID] = true
	}
	if !ids["run1"] || !ids["run4"] {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", FinishedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", FinishedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", FinishedAt: now.AddDate(0, 0, -1)},
		{ID: "run4", FinishedAt: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.ID] = true
	}
	if !ids["run4"] || !ids["run1"] {
		t.Error("Expected run4 and run1 to be selected for deletion (oldest)")
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", FinishedAt: now.AddDate(0, 0, -10)},
		{ID: "run2", FinishedAt: now.AddDate(0, 0, -5)},
		{ID: "run3", FinishedAt: now.AddDate(0, 0, -1)},
	}

	// run1 matches both rules and must appear once.
	toDelete := selectRunsForDeletion(infos, 1, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d: %+v", len(toDelete), toDelete)
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	infos := []store.RunInfo{{ID: "run1", FinishedAt: time.Now()}}

	if got := selectRunsForDeletion(infos, 5, 0); len(got) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(got))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "a"), make([]byte, 100), 0644)
	os.MkdirAll(filepath.Join(tmpDir, "sub"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "sub", "b"), make([]byte, 50), 0644)

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func saveRunAt(t *testing.T, s *store.FSStore, id string, finished time.Time) {
	t.Helper()
	run := &store.Run{
		ID:         id,
		Config:     store.RunConfig{Image: "a.png", Algorithm: store.AlgorithmScan, WidthMM: 10},
		Status:     store.StatusCompleted,
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
}

func TestRunsListCommand(t *testing.T) {
	tmpDir := t.TempDir()
	original := dataDir
	dataDir = tmpDir
	defer func() { dataDir = original }()

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error on empty store, got %v", err)
	}

	s, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveRunAt(t, s, "run-a", time.Now())

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowRun(nil, []string{"run-a"}); err != nil {
		t.Errorf("show failed: %v", err)
	}
	if err := runShowRun(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestRunsCleanCommand_NoFlags(t *testing.T) {
	original := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = original }()

	keepLast = 0
	olderThanDays = 0

	if err := runCleanRuns(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestRunsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveRunAt(t, s, "old-run", time.Now().AddDate(0, 0, -30))
	saveRunAt(t, s, "new-run", time.Now())

	original := dataDir
	dataDir = tmpDir
	defer func() { dataDir = original }()

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() { olderThanDays, forceClean = 0, false }()

	if err := runCleanRuns(nil, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := s.LoadRun("old-run"); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := s.LoadRun("new-run"); err != nil {
		t.Errorf("Recent run should be kept: %v", err)
	}
}
