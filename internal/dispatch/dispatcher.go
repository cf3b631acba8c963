// Package dispatch routes input lines to special commands, the executor, the
// AI provider and the project tools, one block at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/fentz26/blockterm/internal/audit"
	"github.com/fentz26/blockterm/internal/command"
	"github.com/fentz26/blockterm/internal/connectors"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/permission"
	"github.com/fentz26/blockterm/internal/project"
	"github.com/fentz26/blockterm/internal/session"
	"github.com/fentz26/blockterm/internal/ui"
	"go.uber.org/zap"
)

// ErrInterrupted is recorded on a block whose command was cut short by an
// interrupt.
var ErrInterrupted = errors.New("interrupted")

// Deps are the collaborators a Dispatcher routes to.
type Deps struct {
	Sessions     *session.Manager
	Executor     connectors.Connector
	Provider     ai.Provider
	AIOptions    ai.Options
	Conversation *ai.Conversation
	Files        *files.Handler
	Analyzer     *project.Analyzer
	Gate         *permission.Gate
	// Audit is optional; file writes are recorded when set.
	Audit *audit.Writer
	UI    *ui.Renderer
	// Input supplies REPL lines. It should be the same reader the Gate uses.
	Input  permission.LineReader
	Logger *zap.Logger
	Clock  func() time.Time
}

// Dispatcher handles one input line at a time.
type Dispatcher struct {
	sessions *session.Manager
	exec     connectors.Connector
	provider ai.Provider
	aiOpts   ai.Options
	conv     *ai.Conversation
	files    *files.Handler
	analyzer *project.Analyzer
	gate     *permission.Gate
	audit    *audit.Writer
	ui       *ui.Renderer
	input    permission.LineReader
	logger   *zap.Logger
	clock    func() time.Time

	mu        sync.Mutex
	history   []string
	analysis  *project.Analysis
	aiSummary string
}

// New creates a Dispatcher.
func New(d Deps) *Dispatcher {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Dispatcher{
		sessions: d.Sessions,
		exec:     d.Executor,
		provider: d.Provider,
		aiOpts:   d.AIOptions,
		conv:     d.Conversation,
		files:    d.Files,
		analyzer: d.Analyzer,
		gate:     d.Gate,
		audit:    d.Audit,
		ui:       d.UI,
		input:    d.Input,
		logger:   d.Logger,
		clock:    d.Clock,
	}
}

// Run reads and handles lines until end of input or until ctx is cancelled.
// Cancellation ends the whole session, not just the active block.
func (d *Dispatcher) Run(ctx context.Context) error {
	type read struct {
		line string
		err  error
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ch := make(chan read, 1)
		prompt := d.Prompt()
		go func() {
			line, err := d.input.ReadLine(prompt)
			ch <- read{line, err}
		}()

		var r read
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r = <-ch:
		}
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", r.err)
		}

		d.Handle(ctx, r.line)
	}
}

// Prompt returns the REPL prompt for the current state.
func (d *Dispatcher) Prompt() string {
	return d.ui.Prompt(d.clock(), filepath.Base(d.exec.Dir()), d.provider.Info().Provider)
}

// Handle dispatches one line. Special commands and blank lines return nil;
// every other line yields exactly one block in a terminal state.
func (d *Dispatcher) Handle(ctx context.Context, line string) *models.Block {
	cmd := command.Parse(line)
	if cmd.Raw == "" {
		return nil
	}
	if cmd.Kind == command.Special {
		d.special(ctx, cmd)
		return nil
	}

	d.mu.Lock()
	d.history = append(d.history, cmd.Raw)
	d.mu.Unlock()

	// Persistence must not be skipped because the session is being interrupted.
	persistCtx := context.WithoutCancel(ctx)

	b := models.NewBlock(cmd.Raw)
	if err := d.sessions.AddBlock(persistCtx, b); err != nil {
		d.logger.Warn("persisting new block", zap.String("block", b.ID()), zap.Error(err))
	}

	switch cmd.Kind {
	case command.AI:
		d.runAI(ctx, b, cmd)
	case command.Project:
		d.runProject(ctx, b, cmd)
	default:
		d.runSystem(ctx, b, cmd)
	}

	if err := d.sessions.Save(persistCtx); err != nil {
		d.logger.Warn("persisting session", zap.String("block", b.ID()), zap.Error(err))
	}
	d.logger.Info("block finished",
		zap.String("block", b.ID()),
		zap.String("kind", cmd.Kind.String()),
		zap.String("status", string(b.Status())),
		zap.Duration("elapsed", b.Elapsed()),
	)
	return b
}

// History returns the input lines that created blocks, oldest first.
func (d *Dispatcher) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// Analysis returns the cached project analysis, or nil.
func (d *Dispatcher) Analysis() *project.Analysis {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.analysis
}

// AnalyzeProject refreshes the cached project analysis.
func (d *Dispatcher) AnalyzeProject(ctx context.Context) (*project.Analysis, error) {
	an, err := d.analyzer.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.analysis = an
	d.mu.Unlock()
	return an, nil
}

func (d *Dispatcher) runSystem(ctx context.Context, b *models.Block, cmd command.Command) {
	d.transition(b, models.BlockStatusExecuting)
	d.ui.Started(b)

	sink := connectors.NewFanOut(blockSink{b}, d.ui.LiveSink())
	result, err := d.exec.Execute(ctx, cmd.Raw, sink)
	switch {
	case err != nil:
		b.AppendError(err.Error())
		d.transition(b, models.BlockStatusError)
	case ctx.Err() != nil:
		b.AppendError(ErrInterrupted.Error())
		d.transition(b, models.BlockStatusError)
	default:
		b.SetExitCode(result.ExitCode)
		d.transition(b, result.Status())
	}
	d.ui.Result(b, true)
}

func (d *Dispatcher) runAI(ctx context.Context, b *models.Block, cmd command.Command) {
	d.transition(b, models.BlockStatusProcessing)
	d.ui.Started(b)

	reply, err := d.ask(ctx, cmd)
	d.finish(b, reply, err)
}

func (d *Dispatcher) ask(ctx context.Context, cmd command.Command) (string, error) {
	text := cmd.Arg
	if text == "" {
		return "", errors.New("please provide a question")
	}
	if cmd.Verb == command.VerbExplain {
		text = "Explain this in detail:\n" + text
	}

	prompt, err := d.conv.Prompt(ctx, text)
	if err != nil {
		d.logger.Warn("loading conversation context", zap.Error(err))
		prompt = text
	}
	reply, err := d.provider.GenerateResponse(ctx, prompt, d.aiOpts)
	if err != nil {
		return "", err
	}
	if err := d.conv.Record(context.WithoutCancel(ctx), text, reply); err != nil {
		d.logger.Warn("recording conversation", zap.Error(err))
	}
	return reply, nil
}

func (d *Dispatcher) runProject(ctx context.Context, b *models.Block, cmd command.Command) {
	d.transition(b, models.BlockStatusProcessing)
	d.ui.Started(b)

	var (
		out string
		err error
	)
	switch cmd.Verb {
	case command.VerbAnalyze:
		out, err = d.analyze(ctx, cmd.Arg)
	case command.VerbRead:
		out, err = d.read(cmd.Arg)
	case command.VerbEdit:
		out, err = d.edit(ctx, cmd.Arg, cmd.Raw)
		if err != nil {
			err = fmt.Errorf("file edit failed: %w", err)
		}
	case command.VerbProject:
		out, err = d.projectQuery(ctx, cmd.Arg)
	default:
		err = fmt.Errorf("unknown project command: %s", cmd.Verb)
	}
	d.finish(b, out, err)
}

func (d *Dispatcher) analyze(ctx context.Context, focus string) (string, error) {
	an, err := d.AnalyzeProject(ctx)
	if err != nil {
		return "", err
	}
	prompt := project.SummaryPrompt(an)
	if focus != "" {
		prompt += "\nFocus especially on: " + focus
	}
	summary, err := d.provider.GenerateResponse(ctx, prompt, d.aiOpts)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.aiSummary = summary
	d.mu.Unlock()
	return summary, nil
}

func (d *Dispatcher) read(target string) (string, error) {
	if target == "" {
		return "", errors.New("please specify a file to read")
	}
	f, err := d.files.ReadFile(target)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File: %s\nSize: %d bytes, %d lines\n\n%s", f.Path, f.Size, f.LineCount, f.Content), nil
}

func (d *Dispatcher) projectQuery(ctx context.Context, query string) (string, error) {
	an := d.Analysis()
	if an == nil {
		var err error
		if an, err = d.AnalyzeProject(ctx); err != nil {
			return "", err
		}
	}
	if query == "" {
		d.mu.Lock()
		summary := d.aiSummary
		d.mu.Unlock()
		return project.FormatSummary(an, summary), nil
	}
	return d.provider.GenerateResponse(ctx, project.QuestionPrompt(an, query), d.aiOpts)
}

// finish records the outcome of an AI or project block and shows it.
func (d *Dispatcher) finish(b *models.Block, out string, err error) {
	if err != nil {
		b.AppendError(err.Error())
		d.transition(b, models.BlockStatusError)
		d.logger.Warn("command failed", zap.String("block", b.ID()), zap.Error(err))
	} else {
		b.AppendOutput(out)
		d.transition(b, models.BlockStatusCompleted)
	}
	d.ui.Result(b, false)
}

func (d *Dispatcher) transition(b *models.Block, s models.BlockStatus) {
	if err := b.SetStatus(s); err != nil {
		d.logger.Error("block transition",
			zap.String("block", b.ID()),
			zap.String("from", string(b.Status())),
			zap.String("to", string(s)),
			zap.Error(err),
		)
	}
}

// blockSink accumulates executor output on the block.
type blockSink struct {
	b *models.Block
}

func (s blockSink) WriteChunk(c connectors.Chunk) {
	if c.Stream == connectors.Stderr {
		s.b.AppendError(string(c.Data))
		return
	}
	s.b.AppendOutput(string(c.Data))
}
