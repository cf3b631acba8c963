// Package models defines the domain types shared across blockterm.
package models

import (
	"fmt"
	"time"
)

// BlockStatus represents the lifecycle state of a command block.
type BlockStatus string

const (
	BlockStatusPending    BlockStatus = "pending"
	BlockStatusProcessing BlockStatus = "processing"
	BlockStatusExecuting  BlockStatus = "executing"
	BlockStatusCompleted  BlockStatus = "completed"
	BlockStatusError      BlockStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s BlockStatus) Terminal() bool {
	return s == BlockStatusCompleted || s == BlockStatusError
}

// ChangeStatus represents the resolution of a pending file change.
type ChangeStatus string

const (
	ChangeStatusPending   ChangeStatus = "pending"
	ChangeStatusAccepted  ChangeStatus = "accepted"
	ChangeStatusRejected  ChangeStatus = "rejected"
	ChangeStatusCancelled ChangeStatus = "cancelled"
	ChangeStatusNotFound  ChangeStatus = "not_found"
)

// DiffSummary is an approximate size delta between two versions of a file.
// It compares line counts only; it is not a line diff.
type DiffSummary struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// ChangeContext describes why a change is proposed and what it replaces.
type ChangeContext struct {
	Reason         string       `json:"reason"`
	CurrentContent string       `json:"currentContent,omitempty"`
	Diff           *DiffSummary `json:"diff,omitempty"`
}

// PendingChange is a proposed file modification awaiting a decision.
type PendingChange struct {
	ID              string        `json:"id"`
	FilePath        string        `json:"filePath"`
	ProposedContent string        `json:"proposedContent"`
	Context         ChangeContext `json:"context"`
	Status          ChangeStatus  `json:"status"`
	Timestamp       time.Time     `json:"timestamp"`
}

// BlockRecord is the persisted form of a block. Times are epoch milliseconds.
type BlockRecord struct {
	ID          string      `json:"id"`
	Input       string      `json:"input"`
	Output      string      `json:"output"`
	Error       string      `json:"error"`
	Status      BlockStatus `json:"status"`
	StartTime   int64       `json:"startTime"`
	EndTime     *int64      `json:"endTime"`
	ExitCode    *int        `json:"exitCode"`
	IsAICommand bool        `json:"isAICommand"`
	Duration    int64       `json:"duration"`
}

// Snapshot is the full persisted state of one session.
type Snapshot struct {
	ID        string        `json:"id"`
	StartTime int64         `json:"startTime"`
	LastSaved int64         `json:"lastSaved"`
	Blocks    []BlockRecord `json:"blocks"`
}

// SessionSummary describes a stored session without its blocks.
type SessionSummary struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"startTime"`
	LastSaved  time.Time `json:"lastSaved"`
	BlockCount int       `json:"blockCount"`
}

// Summary derives the listing entry for a snapshot.
func (s *Snapshot) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		StartTime:  time.UnixMilli(s.StartTime),
		LastSaved:  time.UnixMilli(s.LastSaved),
		BlockCount: len(s.Blocks),
	}
}

// TranscriptEntry is one exchange of the AI conversation context.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DecisionRecord is an audit entry for a state-mutating action.
type DecisionRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	ChangeID   string    `json:"change_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FormatDuration renders a duration as "Nms", "N.Ns" or "Nm Ns".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		minutes := ms / 60000
		seconds := (ms % 60000) / 1000
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}
