// Package permission asks the user to approve file changes before they are written.
package permission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/models"
	"go.uber.org/zap"
)

// ErrChangeNotFound is returned for unknown change ids.
var ErrChangeNotFound = errors.New("change not found")

// Preview bounds.
const (
	DefaultCurrentLines  = 10
	DefaultProposedLines = 15
)

// LineReader reads one line of user input after showing a prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Decision is the outcome of a permission request.
type Decision struct {
	Approved bool
	ChangeID string
	Status   models.ChangeStatus
}

// Recorder is told about every resolved change.
type Recorder func(ctx context.Context, change models.PendingChange)

// Gate owns the registry of pending changes and runs the approval dialogue.
// One Gate serves one interactive session.
type Gate struct {
	mu      sync.Mutex
	changes map[string]*models.PendingChange

	out    io.Writer
	reader LineReader
	logger *zap.Logger
	clock  func() time.Time

	recorder      Recorder
	currentLines  int
	proposedLines int
}

// Option configures a Gate.
type Option func(*Gate)

// WithRecorder registers a callback for resolved changes.
func WithRecorder(r Recorder) Option {
	return func(g *Gate) { g.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithPreviewLines overrides how many lines of current and proposed content are shown.
func WithPreviewLines(current, proposed int) Option {
	return func(g *Gate) {
		if current > 0 {
			g.currentLines = current
		}
		if proposed > 0 {
			g.proposedLines = proposed
		}
	}
}

// NewGate creates a Gate that prompts on reader and renders to out.
func NewGate(reader LineReader, out io.Writer, opts ...Option) *Gate {
	g := &Gate{
		changes:       make(map[string]*models.PendingChange),
		out:           out,
		reader:        reader,
		logger:        zap.NewNop(),
		clock:         time.Now,
		currentLines:  DefaultCurrentLines,
		proposedLines: DefaultProposedLines,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type choice int

const (
	choiceInvalid choice = iota
	choiceAccept
	choiceReject
	choicePreview
	choiceCancel
)

func parseChoice(line string, previewed bool) choice {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "a", "accept":
		return choiceAccept
	case "r", "reject":
		return choiceReject
	case "p", "preview":
		if !previewed {
			return choicePreview
		}
	case "c", "cancel":
		if !previewed {
			return choiceCancel
		}
	}
	return choiceInvalid
}

// RequestEdit asks whether proposed may replace the content of filePath. It
// blocks until the user decides. End of input counts as cancel.
func (g *Gate) RequestEdit(ctx context.Context, filePath, proposed string, cc models.ChangeContext) (Decision, error) {
	change := g.register(filePath, proposed, cc)
	g.logger.Info("permission requested", zap.String("change", change.ID), zap.String("file", filePath))

	g.renderRequest(change)
	previewed := false
	for {
		if err := ctx.Err(); err != nil {
			return g.resolve(ctx, change.ID, models.ChangeStatusCancelled), err
		}

		prompt := menuPrompt
		if previewed {
			prompt = previewMenuPrompt
		}
		line, err := g.reader.ReadLine(prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				g.logger.Warn("reading permission answer", zap.Error(err))
			}
			return g.resolve(ctx, change.ID, models.ChangeStatusCancelled), nil
		}

		switch parseChoice(line, previewed) {
		case choiceAccept:
			return g.resolve(ctx, change.ID, models.ChangeStatusAccepted), nil
		case choiceReject:
			return g.resolve(ctx, change.ID, models.ChangeStatusRejected), nil
		case choiceCancel:
			return g.resolve(ctx, change.ID, models.ChangeStatusCancelled), nil
		case choicePreview:
			g.renderFull(change)
			previewed = true
		default:
			g.renderInvalid(previewed)
		}
	}
}

func (g *Gate) register(filePath, proposed string, cc models.ChangeContext) *models.PendingChange {
	now := g.clock()
	change := &models.PendingChange{
		ID:              models.NewID("change", now),
		FilePath:        filePath,
		ProposedContent: proposed,
		Context:         cc,
		Status:          models.ChangeStatusPending,
		Timestamp:       now,
	}
	g.mu.Lock()
	g.changes[change.ID] = change
	g.mu.Unlock()
	return change
}

// resolve moves a pending change to its final status exactly once.
func (g *Gate) resolve(ctx context.Context, id string, status models.ChangeStatus) Decision {
	g.mu.Lock()
	change := g.changes[id]
	if change.Status == models.ChangeStatusPending {
		change.Status = status
	}
	final := *change
	g.mu.Unlock()

	g.logger.Info("permission resolved", zap.String("change", id), zap.String("status", string(final.Status)))
	if g.recorder != nil {
		// A change cancelled by an interrupt must still reach the recorder.
		g.recorder(context.WithoutCancel(ctx), final)
	}
	return Decision{
		Approved: final.Status == models.ChangeStatusAccepted,
		ChangeID: id,
		Status:   final.Status,
	}
}

// ChangeStatus returns the status of a change, or not_found.
func (g *Gate) ChangeStatus(id string) models.ChangeStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.changes[id]; ok {
		return c.Status
	}
	return models.ChangeStatusNotFound
}

// Change returns a copy of a registered change.
func (g *Gate) Change(id string) (models.PendingChange, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.changes[id]
	if !ok {
		return models.PendingChange{}, fmt.Errorf("%w: %s", ErrChangeNotFound, id)
	}
	return *c, nil
}

// PendingChanges returns changes still awaiting a decision, oldest first.
func (g *Gate) PendingChanges() []models.PendingChange {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.PendingChange
	for _, c := range g.changes {
		if c.Status == models.ChangeStatusPending {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// ClearChange forgets a change.
func (g *Gate) ClearChange(id string) {
	g.mu.Lock()
	delete(g.changes, id)
	g.mu.Unlock()
}

// ClearAll forgets every change.
func (g *Gate) ClearAll() {
	g.mu.Lock()
	g.changes = make(map[string]*models.PendingChange)
	g.mu.Unlock()
}

// ComputeDiff compares line counts of two versions. It does not align lines,
// so an edit that keeps the line count reports no additions or deletions.
func ComputeDiff(oldContent, newContent string) models.DiffSummary {
	oldLines := files.CountLines(oldContent)
	newLines := files.CountLines(newContent)
	d := models.DiffSummary{}
	if newLines > oldLines {
		d.Additions = newLines - oldLines
	}
	if oldLines > newLines {
		d.Deletions = oldLines - newLines
	}
	d.Changes = d.Additions + d.Deletions
	return d
}
