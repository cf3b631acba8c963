package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fentz26/blockterm/internal/models"
	"go.uber.org/zap"
)

// Files keeps one JSON document per session in a directory.
type Files struct {
	dir    string
	logger *zap.Logger
}

// NewFiles creates a file-backed snapshot store rooted at dir.
func NewFiles(dir string, logger *zap.Logger) *Files {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Files{dir: dir, logger: logger}
}

// Dir returns the snapshot directory.
func (f *Files) Dir() string { return f.dir }

// Init creates the snapshot directory.
func (f *Files) Init(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}
	return nil
}

// SaveSnapshot writes the snapshot atomically, replacing the previous document.
func (f *Files) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if err := validID(snap.ID); err != nil {
		return err
	}
	if err := f.Init(ctx); err != nil {
		return err
	}
	return writeJSONAtomic(f.path(snap.ID), snap)
}

// LoadSnapshot reads the snapshot for a session id.
func (f *Files) LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return readSnapshot(f.path(id))
}

// ListSnapshots returns summaries of all readable snapshots, most recently
// saved first. Unreadable documents are skipped.
func (f *Files) ListSnapshots(ctx context.Context) ([]models.SessionSummary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var out []models.SessionSummary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := readSnapshot(filepath.Join(f.dir, entry.Name()))
		if err != nil {
			f.logger.Warn("skipping unreadable session", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		out = append(out, snap.Summary())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastSaved.After(out[j].LastSaved)
	})
	return out, nil
}

// DeleteSnapshot removes a session document. It reports whether one existed.
func (f *Files) DeleteSnapshot(ctx context.Context, id string) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}
	err := os.Remove(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return true, nil
}

func (f *Files) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

func readSnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	if snap.ID == "" {
		return nil, fmt.Errorf("decode snapshot %s: missing id", filepath.Base(path))
	}
	return &snap, nil
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
