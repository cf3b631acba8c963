// Package connectors defines the interface for executing input lines as local programs.
package connectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/models"
)

// Stream identifies which output of a process a chunk came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Chunk is a piece of process output, delivered in arrival order.
type Chunk struct {
	Stream Stream
	Data   []byte
}

// Sink receives output chunks.
type Sink interface {
	WriteChunk(Chunk)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Chunk)

func (f SinkFunc) WriteChunk(c Chunk) { f(c) }

// FanOut delivers each chunk to every sink, in order, under a single lock, so
// all sinks observe the same interleaving of stdout and stderr.
type FanOut struct {
	mu    sync.Mutex
	sinks []Sink
}

// NewFanOut creates a FanOut over the non-nil sinks.
func NewFanOut(sinks ...Sink) *FanOut {
	f := &FanOut{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// WriteChunk implements Sink.
func (f *FanOut) WriteChunk(c Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sinks {
		s.WriteChunk(c)
	}
}

// ExecResult contains the result of a program that ran to completion.
type ExecResult struct {
	Command  string
	Args     []string
	Shell    bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Status maps the exit code onto a terminal block status.
func (r *ExecResult) Status() models.BlockStatus {
	if r.ExitCode == 0 {
		return models.BlockStatusCompleted
	}
	return models.BlockStatusError
}

// LaunchError means the program never ran, so there is no exit code.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Connector defines the interface for running input lines.
type Connector interface {
	// Name returns the connector identifier.
	Name() string

	// Execute runs the line, streaming output to sink as it arrives. A
	// *LaunchError is returned when the program could not be started.
	Execute(ctx context.Context, line string, sink Sink) (*ExecResult, error)

	// Dir returns the working directory used for execution.
	Dir() string
}
