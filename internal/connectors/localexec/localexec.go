// Package localexec runs input lines as local programs and streams their output.
package localexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/connectors"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShellMode selects when a line is handed to the OS shell.
type ShellMode string

const (
	// ShellAuto uses the shell only for lines with shell syntax.
	ShellAuto ShellMode = "auto"
	// ShellAlways runs every line through the shell.
	ShellAlways ShellMode = "always"
	// ShellNever always executes the program directly.
	ShellNever ShellMode = "never"
)

// ErrEmptyCommand is returned for blank lines.
var ErrEmptyCommand = errors.New("empty command")

const chunkSize = 32 * 1024

// shellSyntax lists characters that need a shell to interpret.
const shellSyntax = "|&;<>()$`*?[]{}~\n"

// shellWords are builtins and keywords that exist only inside a shell.
var shellWords = map[string]bool{
	"export": true, "unset": true, "alias": true, "source": true, ".": true,
	"exec": true, "eval": true, "set": true, "ulimit": true, "umask": true,
	"if": true, "for": true, "while": true, "until": true, "case": true,
	"type": true, "command": true, "exit": true, "read": true, "wait": true,
}

// LocalExec implements the Connector interface for local program execution.
type LocalExec struct {
	mu      sync.Mutex
	workDir string

	mode   ShellMode
	shell  []string
	logger *zap.Logger

	lookPath func(string) (string, error)
}

// Option configures a LocalExec.
type Option func(*LocalExec)

// WithShellMode sets when the OS shell is used.
func WithShellMode(m ShellMode) Option {
	return func(l *LocalExec) {
		if m != "" {
			l.mode = m
		}
	}
}

// WithShell overrides the shell invocation, e.g. []string{"/bin/bash", "-c"}.
func WithShell(argv []string) Option {
	return func(l *LocalExec) {
		if len(argv) > 0 {
			l.shell = argv
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *LocalExec) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a new LocalExec connector rooted at workDir. An empty workDir
// means the process working directory.
func New(workDir string, opts ...Option) *LocalExec {
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	l := &LocalExec{
		workDir:  workDir,
		mode:     ShellAuto,
		shell:    defaultShell(),
		logger:   zap.NewNop(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// Dir returns the current working directory of the connector.
func (l *LocalExec) Dir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.workDir
}

// Execute runs the line and streams its output to sink.
func (l *LocalExec) Execute(ctx context.Context, line string, sink connectors.Sink) (*connectors.ExecResult, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, &connectors.LaunchError{Err: ErrEmptyCommand}
	}

	words, splitErr := shellquote.Split(line)
	if splitErr != nil && l.mode == ShellNever {
		return nil, &connectors.LaunchError{Program: line, Err: fmt.Errorf("parse command line: %w", splitErr)}
	}
	useShell := l.mode == ShellAlways || splitErr != nil || (l.mode == ShellAuto && NeedsShell(line))
	// Builtins and VAR=value prefixes only mean something to a shell.
	if !useShell && l.mode != ShellNever && len(words) > 0 &&
		(shellWords[words[0]] || strings.Contains(words[0], "=")) {
		useShell = true
	}

	if splitErr == nil && len(words) > 0 && words[0] == "cd" && !strings.ContainsAny(line, "|&;<>`") {
		return l.changeDir(words[1:], sink), nil
	}

	var program string
	if len(words) > 0 {
		program = words[0]
		if err := l.checkProgram(program, useShell); err != nil {
			return nil, &connectors.LaunchError{Program: program, Err: err}
		}
	}

	var cmd *exec.Cmd
	if useShell {
		argv := append(append([]string{}, l.shell[1:]...), line)
		cmd = exec.CommandContext(ctx, l.shell[0], argv...)
	} else {
		cmd = exec.CommandContext(ctx, program, words[1:]...)
	}
	cmd.Dir = l.Dir()
	configureProc(cmd)

	l.logger.Debug("executing",
		zap.String("line", line),
		zap.Bool("shell", useShell),
		zap.String("dir", cmd.Dir),
	)
	return l.run(cmd, program, words, useShell, sink)
}

func (l *LocalExec) run(cmd *exec.Cmd, program string, words []string, useShell bool, sink connectors.Sink) (*connectors.ExecResult, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &connectors.LaunchError{Program: program, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &connectors.LaunchError{Program: program, Err: err}
	}

	collected := &collector{}
	fan := connectors.NewFanOut(sink, collected)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &connectors.LaunchError{Program: program, Err: err}
	}

	var g errgroup.Group
	g.Go(func() error { return pump(stdout, connectors.Stdout, fan) })
	g.Go(func() error { return pump(stderr, connectors.Stderr, fan) })
	if err := g.Wait(); err != nil {
		l.logger.Warn("reading process output", zap.Error(err))
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wait for %s: %w", program, err)
		}
		exitCode = exitErr.ExitCode()
	}

	result := &connectors.ExecResult{
		Command:  program,
		Shell:    useShell,
		ExitCode: exitCode,
		Stdout:   collected.stdout.String(),
		Stderr:   collected.stderr.String(),
		Duration: time.Since(start),
	}
	if len(words) > 1 {
		result.Args = words[1:]
	}
	return result, nil
}

// checkProgram resolves the program before launch so an unknown command is a
// launch failure rather than a shell exit status.
func (l *LocalExec) checkProgram(program string, useShell bool) error {
	if useShell && (shellWords[program] || strings.Contains(program, "=") || strings.ContainsAny(program, shellSyntax)) {
		return nil
	}
	path := program
	if strings.ContainsRune(program, filepath.Separator) && !filepath.IsAbs(program) {
		path = filepath.Join(l.Dir(), program)
	}
	if _, err := l.lookPath(path); err != nil {
		return err
	}
	return nil
}

// changeDir implements the cd builtin, which must affect later lines.
func (l *LocalExec) changeDir(args []string, sink connectors.Sink) *connectors.ExecResult {
	start := time.Now()
	result := &connectors.ExecResult{Command: "cd", Args: args}

	target := ""
	switch len(args) {
	case 0:
		target, _ = os.UserHomeDir()
	case 1:
		target = os.ExpandEnv(args[0])
		if strings.HasPrefix(target, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				target = filepath.Join(home, strings.TrimPrefix(target, "~"))
			}
		}
	default:
		return l.failCd(result, "cd: too many arguments\n", sink, start)
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(l.Dir(), target)
	}
	info, err := os.Stat(target)
	if err != nil {
		return l.failCd(result, fmt.Sprintf("cd: %s: no such file or directory\n", strings.Join(args, " ")), sink, start)
	}
	if !info.IsDir() {
		return l.failCd(result, fmt.Sprintf("cd: %s: not a directory\n", strings.Join(args, " ")), sink, start)
	}

	l.mu.Lock()
	l.workDir = filepath.Clean(target)
	l.mu.Unlock()
	result.Duration = time.Since(start)
	return result
}

func (l *LocalExec) failCd(result *connectors.ExecResult, msg string, sink connectors.Sink, start time.Time) *connectors.ExecResult {
	if sink != nil {
		sink.WriteChunk(connectors.Chunk{Stream: connectors.Stderr, Data: []byte(msg)})
	}
	result.ExitCode = 1
	result.Stderr = msg
	result.Duration = time.Since(start)
	return result
}

// NeedsShell reports whether the line uses syntax only a shell can interpret.
func NeedsShell(line string) bool {
	inSingle, inDouble := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && !inSingle:
			i++
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle:
		case inDouble:
			if c == '$' || c == '`' {
				return true
			}
		case strings.IndexByte(shellSyntax, c) >= 0:
			return true
		}
	}
	return false
}

func pump(r io.Reader, stream connectors.Stream, sink connectors.Sink) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			sink.WriteChunk(connectors.Chunk{Stream: stream, Data: data})
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", stream, err)
		}
	}
}

// collector keeps a copy of the output for the ExecResult. It is only called
// through a FanOut, which serializes writes.
type collector struct {
	stdout strings.Builder
	stderr strings.Builder
}

func (c *collector) WriteChunk(ch connectors.Chunk) {
	if ch.Stream == connectors.Stderr {
		c.stderr.Write(ch.Data)
		return
	}
	c.stdout.Write(ch.Data)
}
