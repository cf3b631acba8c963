// Package audit records decisions about file changes for later review.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/store"
	"go.uber.org/zap"
)

// Actions recorded in the audit log.
const (
	ActionPermission = "permission.edit"
	ActionFileWrite  = "file.write"
)

// Writer writes decision records for audit trails.
type Writer struct {
	store  *store.Store
	logger *zap.Logger
}

// NewWriter creates a new decision writer.
func NewWriter(s *store.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: s, logger: logger}
}

// Record writes a decision record for a state-mutating action.
func (w *Writer) Record(ctx context.Context, action string, inputs interface{}, outcome, changeID, details string) (*models.DecisionRecord, error) {
	return w.store.WriteDecision(ctx, action, hashInputs(inputs), outcome, changeID, details)
}

// RecordChange stores the resolution of a permission request. Failures are
// logged; the decision itself already happened.
func (w *Writer) RecordChange(ctx context.Context, c models.PendingChange) {
	inputs := struct {
		File     string `json:"file"`
		Proposed string `json:"proposed"`
	}{c.FilePath, c.ProposedContent}
	if _, err := w.Record(ctx, ActionPermission, inputs, string(c.Status), c.ID, c.FilePath); err != nil {
		w.logger.Warn("recording permission decision", zap.String("change", c.ID), zap.Error(err))
	}
}

// RecordWrite stores the outcome of writing an approved change.
func (w *Writer) RecordWrite(ctx context.Context, changeID, path, content string, writeErr error) {
	outcome, details := "written", path
	if writeErr != nil {
		outcome, details = "failed", writeErr.Error()
	}
	if _, err := w.Record(ctx, ActionFileWrite, map[string]string{"file": path, "content": content}, outcome, changeID, details); err != nil {
		w.logger.Warn("recording file write", zap.String("change", changeID), zap.Error(err))
	}
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
