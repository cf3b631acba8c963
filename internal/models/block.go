package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/command"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a status change would move a block backwards.
var ErrInvalidTransition = errors.New("invalid block status transition")

// Block is one input line and its result. It is safe for concurrent use.
type Block struct {
	mu sync.Mutex

	id        string
	input     string
	output    strings.Builder
	errOut    strings.Builder
	status    BlockStatus
	startTime time.Time
	endTime   *time.Time
	exitCode  *int
	isAI      bool

	clock func() time.Time
}

// NewBlock creates a pending block. Whether it is an AI block is decided here,
// from the input, and never changes.
func NewBlock(input string) *Block {
	return newBlockAt(input, time.Now)
}

func newBlockAt(input string, clock func() time.Time) *Block {
	now := clock()
	return &Block{
		id:        NewID("block", now),
		input:     input,
		status:    BlockStatusPending,
		startTime: now,
		isAI:      command.IsAICommand(input),
		clock:     clock,
	}
}

// NewID returns "<prefix>_<unix-ms>_<random>".
func NewID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

func (b *Block) ID() string           { return b.id }
func (b *Block) Input() string        { return b.input }
func (b *Block) IsAICommand() bool    { return b.isAI }
func (b *Block) StartTime() time.Time { return b.startTime }

// Output returns the accumulated standard output.
func (b *Block) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.output.String()
}

// ErrorOutput returns the accumulated error text.
func (b *Block) ErrorOutput() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errOut.String()
}

// Status returns the current status.
func (b *Block) Status() BlockStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// EndTime returns the time the block reached a terminal status.
func (b *Block) EndTime() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endTime == nil {
		return time.Time{}, false
	}
	return *b.endTime, true
}

// ExitCode returns the process exit code, if a process ran to completion.
func (b *Block) ExitCode() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exitCode == nil {
		return 0, false
	}
	return *b.exitCode, true
}

// AppendOutput appends text to the standard output buffer.
func (b *Block) AppendOutput(s string) {
	b.mu.Lock()
	b.output.WriteString(s)
	b.mu.Unlock()
}

// AppendError appends text to the error buffer.
func (b *Block) AppendError(s string) {
	b.mu.Lock()
	b.errOut.WriteString(s)
	b.mu.Unlock()
}

// SetExitCode records the process exit code.
func (b *Block) SetExitCode(code int) {
	b.mu.Lock()
	b.exitCode = &code
	b.mu.Unlock()
}

// SetStatus moves the block forward. Terminal states are final and the end
// time is stamped on the first terminal transition only.
func (b *Block) SetStatus(s BlockStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !validTransition(b.status, s) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.status, s)
	}
	b.status = s
	if s.Terminal() && b.endTime == nil {
		end := b.clock()
		b.endTime = &end
	}
	return nil
}

func validTransition(from, to BlockStatus) bool {
	switch from {
	case BlockStatusPending:
		return to != BlockStatusPending
	case BlockStatusProcessing, BlockStatusExecuting:
		return to.Terminal()
	default:
		return false
	}
}

// Elapsed is endTime-startTime once terminal, otherwise the running time.
func (b *Block) Elapsed() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endTime != nil {
		return b.endTime.Sub(b.startTime)
	}
	return b.clock().Sub(b.startTime)
}

// Record returns the persisted form of the block.
func (b *Block) Record() BlockRecord {
	elapsed := b.Elapsed()

	b.mu.Lock()
	defer b.mu.Unlock()
	rec := BlockRecord{
		ID:          b.id,
		Input:       b.input,
		Output:      b.output.String(),
		Error:       b.errOut.String(),
		Status:      b.status,
		StartTime:   b.startTime.UnixMilli(),
		IsAICommand: b.isAI,
		Duration:    elapsed.Milliseconds(),
	}
	if b.endTime != nil {
		end := b.endTime.UnixMilli()
		rec.EndTime = &end
		rec.Duration = end - rec.StartTime
	}
	if b.exitCode != nil {
		code := *b.exitCode
		rec.ExitCode = &code
	}
	return rec
}

// BlockFromRecord restores a block from its persisted form.
func BlockFromRecord(rec BlockRecord) *Block {
	b := &Block{
		id:        rec.ID,
		input:     rec.Input,
		status:    rec.Status,
		startTime: time.UnixMilli(rec.StartTime),
		isAI:      rec.IsAICommand,
		clock:     time.Now,
	}
	if b.status == "" {
		b.status = BlockStatusPending
	}
	b.output.WriteString(rec.Output)
	b.errOut.WriteString(rec.Error)
	if rec.EndTime != nil {
		end := time.UnixMilli(*rec.EndTime)
		b.endTime = &end
	} else {
		// Nothing runs a restored block any more; its time stops where it was saved.
		stopped := b.startTime.Add(time.Duration(rec.Duration) * time.Millisecond)
		b.clock = func() time.Time { return stopped }
	}
	if rec.ExitCode != nil {
		code := *rec.ExitCode
		b.exitCode = &code
	}
	return b
}
