package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func testSnapshot(id string, lastSaved int64, blocks int) *models.Snapshot {
	snap := &models.Snapshot{ID: id, StartTime: 1700000000000, LastSaved: lastSaved}
	for i := 0; i < blocks; i++ {
		end := snap.StartTime + int64(i+1)*10
		code := i
		snap.Blocks = append(snap.Blocks, models.BlockRecord{
			ID:        fmt.Sprintf("block_%d", i),
			Input:     "echo hi",
			Output:    "hi\n",
			Status:    models.BlockStatusCompleted,
			StartTime: snap.StartTime,
			EndTime:   &end,
			ExitCode:  &code,
			Duration:  int64(i+1) * 10,
		})
	}
	return snap
}

func TestSnapshotCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	snap := testSnapshot("session_2024_03_05_14_07", 1700000001000, 2)
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := s.LoadSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// Save replaces the whole document
	snap.Blocks = snap.Blocks[:1]
	snap.LastSaved++
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot (replace) failed: %v", err)
	}
	got, _ = s.LoadSnapshot(ctx, snap.ID)
	if len(got.Blocks) != 1 {
		t.Errorf("Expected 1 block after replace, got %d", len(got.Blocks))
	}

	deleted, err := s.DeleteSnapshot(ctx, snap.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteSnapshot = %v, %v; want true, nil", deleted, err)
	}
	deleted, _ = s.DeleteSnapshot(ctx, snap.ID)
	if deleted {
		t.Error("Second delete should report false")
	}

	if _, err := s.LoadSnapshot(ctx, snap.ID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestListSnapshotsOrder(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for i, saved := range []int64{300, 100, 200} {
		if err := s.SaveSnapshot(ctx, testSnapshot(fmt.Sprintf("session_%d", i), saved, i)); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	list, err := s.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	want := []string{"session_0", "session_2", "session_1"}
	if len(list) != len(want) {
		t.Fatalf("Expected %d sessions, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, id)
		}
	}
	if list[1].BlockCount != 2 {
		t.Errorf("Expected block count 2, got %d", list[1].BlockCount)
	}
}

func TestTranscript(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := s.AppendTranscript(ctx, fmt.Sprintf("User: q%d\nAI: a%d", i, i)); err != nil {
			t.Fatalf("AppendTranscript failed: %v", err)
		}
	}

	all, err := s.RecentTranscript(ctx, 0)
	if err != nil {
		t.Fatalf("RecentTranscript failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(all))
	}

	recent, err := s.RecentTranscript(ctx, 2)
	if err != nil {
		t.Fatalf("RecentTranscript failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Content != "User: q4\nAI: a4" || recent[1].Content != "User: q5\nAI: a5" {
		t.Errorf("Unexpected order: %q, %q", recent[0].Content, recent[1].Content)
	}

	n, err := s.ClearTranscript(ctx)
	if err != nil {
		t.Fatalf("ClearTranscript failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 removed, got %d", n)
	}
}

func TestWriteDecision(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	rec, err := s.WriteDecision(ctx, "permission.edit", "abc123", "rejected", "change_1", "notes.txt")
	if err != nil {
		t.Fatalf("WriteDecision failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Decision ID should not be empty")
	}
	if _, err := s.WriteDecision(ctx, "file.write", "def456", "written", "change_2", "main.go"); err != nil {
		t.Fatalf("WriteDecision failed: %v", err)
	}

	forChange, err := s.ListDecisions(ctx, "change_1", 0)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(forChange) != 1 || forChange[0].Outcome != "rejected" {
		t.Errorf("Unexpected decisions for change_1: %+v", forChange)
	}

	all, _ := s.ListDecisions(ctx, "", 0)
	if len(all) != 2 {
		t.Errorf("Expected 2 decisions, got %d", len(all))
	}
}
