package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/fentz26/blockterm/internal/connectors"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/project"
	"github.com/fentz26/blockterm/internal/session"
)

// historyLimit is how many history entries !history shows.
const historyLimit = 20

// Renderer writes terminal output. Live stderr goes to errOut; everything
// else goes to out. Safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	st     styles
}

// NewRenderer creates a Renderer. Colors are enabled only when the writer is
// a terminal.
func NewRenderer(out, errOut io.Writer) *Renderer {
	if errOut == nil {
		errOut = out
	}
	return &Renderer{out: out, errOut: errOut, st: newStyles(out)}
}

// Out returns the writer for regular output.
func (r *Renderer) Out() io.Writer { return r.out }

func (r *Renderer) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, s)
}

func (r *Renderer) rule() string {
	return r.st.muted.Render(strings.Repeat("━", ruleWidth))
}

func (r *Renderer) section(icon, title string, body func(b *strings.Builder)) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n", r.st.heading.Render(icon+" "+title), r.rule())
	body(&b)
	fmt.Fprintf(&b, "%s\n\n", r.rule())
	r.print(b.String())
}

func (r *Renderer) field(b *strings.Builder, label string, value string) {
	fmt.Fprintf(b, "  %s %s\n", r.st.label.Render(label+":"), value)
}

// Welcome prints the banner.
func (r *Renderer) Welcome() {
	var b strings.Builder
	b.WriteString(r.st.title.Render("BLOCKTERM") + "\n")
	b.WriteString(r.rule() + "\n")
	b.WriteString(r.st.warning.Render("AI-powered block terminal") + "\n")
	fmt.Fprintf(&b, "%s%s%s%s%s\n",
		r.st.muted.Render("  Type "), r.st.accent.Render("!help"),
		r.st.muted.Render(" for commands, "), r.st.accent.Render("!ai-help"),
		r.st.muted.Render(" for AI features"))
	b.WriteString(r.rule() + "\n\n")
	r.print(b.String())
}

// Clear clears the screen and reprints the banner.
func (r *Renderer) Clear() {
	r.print("\x1b[H\x1b[2J")
	r.Welcome()
}

// Prompt formats the input prompt: time, working directory and AI provider.
func (r *Renderer) Prompt(now time.Time, dir string, provider ai.ProviderName) string {
	return r.st.promptTime.Render("["+now.Format("15:04:05")+"]") + " " +
		r.st.promptDir.Render(dir) + " " +
		r.st.promptAI.Render("("+string(provider)+")") + " " +
		r.st.promptMark.Render("❯") + " "
}

// Started announces a block entering processing or execution.
func (r *Renderer) Started(b *models.Block) {
	msg := "Executing..."
	if b.Status() == models.BlockStatusProcessing {
		msg = "AI processing..."
	}
	r.print(r.st.info.Render("⠋") + " " + r.st.muted.Render(msg) + "\n")
}

// LiveSink streams subprocess output as it arrives.
func (r *Renderer) LiveSink() connectors.Sink {
	return connectors.SinkFunc(func(c connectors.Chunk) {
		r.mu.Lock()
		defer r.mu.Unlock()
		w := r.out
		if c.Stream == connectors.Stderr {
			w = r.errOut
		}
		w.Write(c.Data)
	})
}

// Result prints a finished block. Output that was already streamed live is
// not repeated.
func (r *Renderer) Result(b *models.Block, streamed bool) {
	var body strings.Builder
	failed := b.Status() == models.BlockStatusError
	if failed {
		body.WriteString(r.st.err.Render("✗ Command failed"))
	} else {
		body.WriteString(r.st.success.Render("✓ Command completed successfully"))
	}
	fmt.Fprintf(&body, " %s\n", r.st.muted.Render("("+models.FormatDuration(b.Elapsed())+")"))
	fmt.Fprintf(&body, "%s %s", r.st.info.Render("Input:"), b.Input())

	if out := strings.TrimRight(b.Output(), "\n"); out != "" && !streamed {
		body.WriteString("\n\n" + out)
	}
	if errText := strings.TrimRight(b.ErrorOutput(), "\n"); errText != "" && (!streamed || failed) {
		body.WriteString("\n\n" + r.st.err.Render(errText))
	}
	if code, ok := b.ExitCode(); ok && code != 0 {
		body.WriteString("\n" + r.st.err.Render(fmt.Sprintf("Exit code: %d", code)))
	}
	r.print(r.st.box.Render(body.String()) + "\n\n")
}

// Error prints an error message.
func (r *Renderer) Error(msg string) {
	r.print(r.st.err.Render("Error: "+msg) + "\n")
}

// Warning prints a warning.
func (r *Renderer) Warning(msg string) {
	r.print(r.st.warning.Render("Warning: "+msg) + "\n")
}

// Info prints an informational message.
func (r *Renderer) Info(msg string) {
	r.print(r.st.info.Render(msg) + "\n")
}

type helpEntry struct{ usage, desc string }

func (r *Renderer) entries(b *strings.Builder, title string, list []helpEntry) {
	b.WriteString(r.st.warning.Render(title) + "\n")
	for _, e := range list {
		fmt.Fprintf(b, "  %s%s\n", r.st.text.Render(fmt.Sprintf("%-18s", e.usage)), r.st.muted.Render(e.desc))
	}
}

var (
	specialHelp = []helpEntry{
		{"!help", "Show this help message"},
		{"!history", "Show command history"},
		{"!clear", "Clear the terminal screen"},
		{"!session", "Show current session blocks"},
		{"!stats", "Show session statistics"},
		{"!sessions", "List all saved sessions"},
		{"!ai-info", "Show AI provider information"},
		{"!project-info", "Show project analysis"},
		{"!ai-help", "Show AI command help"},
	}
	aiHelp = []helpEntry{
		{"ai <question>", "Ask AI any question"},
		{"?<question>", "Quick AI question"},
		{"ask <question>", "Explicit ask command"},
		{"explain <topic>", "Get detailed explanation"},
	}
	projectHelp = []helpEntry{
		{"analyze", "Analyze the project with AI"},
		{"read <file>", "Read and display a file"},
		{"edit <file>", "AI edit with permission prompt"},
		{"project [query]", "Project summary, or ask about it"},
	}
)

// Help prints the command reference.
func (r *Renderer) Help() {
	r.section("📚", "BLOCKTERM HELP", func(b *strings.Builder) {
		r.entries(b, "Special Commands:", specialHelp)
		b.WriteString(r.rule() + "\n")
		r.entries(b, "AI Commands:", aiHelp)
		b.WriteString(r.rule() + "\n")
		r.entries(b, "Project Commands:", projectHelp)
		b.WriteString(r.rule() + "\n")
		b.WriteString(r.st.warning.Render("System Commands:") + "\n")
		b.WriteString(r.st.text.Render("  Any system command works normally (ls, cd, git, go, etc.)") + "\n")
	})
}

// AIHelp prints the AI command reference with examples.
func (r *Renderer) AIHelp() {
	r.section("🤖", "AI COMMANDS HELP", func(b *strings.Builder) {
		r.entries(b, "AI Command Formats:", aiHelp)
		b.WriteString(r.rule() + "\n")
		r.entries(b, "Project Analysis Commands:", projectHelp)
		b.WriteString(r.rule() + "\n")
		b.WriteString(r.st.warning.Render("Examples:") + "\n")
		for _, ex := range []string{
			"ai How do I profile a Go program?",
			"?What does context cancellation do?",
			"explain goroutine leaks",
			"analyze",
			"read main.go",
			"edit README.md",
			"project What technologies am I using?",
		} {
			b.WriteString("  " + r.st.text.Render(ex) + "\n")
		}
	})
}

// History prints the most recent command history entries, numbered from the
// start of the session.
func (r *Renderer) History(history []string) {
	r.section("📜", "COMMAND HISTORY", func(b *strings.Builder) {
		if len(history) == 0 {
			b.WriteString(r.st.muted.Render("  No commands in history yet.") + "\n")
			return
		}
		start := 0
		if len(history) > historyLimit {
			start = len(history) - historyLimit
		}
		for i := start; i < len(history); i++ {
			fmt.Fprintf(b, "  %s %s\n", r.st.text.Render(fmt.Sprintf("%3d:", i+1)), r.st.muted.Render(history[i]))
		}
	})
}

func (r *Renderer) statusIcon(s models.BlockStatus) string {
	switch s {
	case models.BlockStatusCompleted:
		return r.st.success.Render("✓")
	case models.BlockStatusError:
		return r.st.err.Render("✗")
	case models.BlockStatusProcessing, models.BlockStatusExecuting:
		return r.st.info.Render("…")
	default:
		return r.st.warning.Render("·")
	}
}

// Session lists the blocks of the current session.
func (r *Renderer) Session(blocks []*models.Block) {
	r.section("📋", "CURRENT SESSION", func(b *strings.Builder) {
		if len(blocks) == 0 {
			b.WriteString(r.st.muted.Render("  No commands in current session.") + "\n")
			return
		}
		for i, blk := range blocks {
			kind := r.st.muted.Render("sys")
			if blk.IsAICommand() {
				kind = r.st.accent.Render("ai ")
			}
			fmt.Fprintf(b, "  %s %s %s %s %s\n",
				r.st.text.Render(fmt.Sprintf("%d.", i+1)),
				r.statusIcon(blk.Status()),
				kind,
				r.st.muted.Render(blk.Input()),
				r.st.muted.Render("("+models.FormatDuration(blk.Elapsed())+")"),
			)
		}
	})
}

// Stats prints session statistics.
func (r *Renderer) Stats(st session.Stats) {
	r.section("📊", "SESSION STATISTICS", func(b *strings.Builder) {
		r.field(b, "Session ID", r.st.muted.Render(st.SessionID))
		r.field(b, "Total Blocks", r.st.info.Render(fmt.Sprint(st.TotalBlocks)))
		r.field(b, "AI Commands", r.st.success.Render(fmt.Sprint(st.AIBlocks)))
		r.field(b, "System Commands", r.st.warning.Render(fmt.Sprint(st.SystemBlocks)))
		r.field(b, "Errors", r.st.err.Render(fmt.Sprint(st.ErrorBlocks)))
		r.field(b, "Success Rate", r.st.success.Render(fmt.Sprintf("%g%%", st.SuccessRate)))
		r.field(b, "Total Duration", r.st.info.Render(models.FormatDuration(st.TotalDuration)))
		r.field(b, "Avg Block Duration", r.st.info.Render(models.FormatDuration(st.AvgDuration)))
	})
}

// Sessions lists saved sessions, marking the current one.
func (r *Renderer) Sessions(list []models.SessionSummary, currentID string) {
	r.section("📚", "SAVED SESSIONS", func(b *strings.Builder) {
		if len(list) == 0 {
			b.WriteString(r.st.muted.Render("  No saved sessions found.") + "\n")
			return
		}
		for i, s := range list {
			marker := ""
			if s.ID == currentID {
				marker = " " + r.st.success.Render("(current)")
			}
			fmt.Fprintf(b, "  %s %s %s%s\n",
				r.st.text.Render(fmt.Sprintf("%d.", i+1)),
				r.st.info.Render(s.ID),
				r.st.muted.Render(fmt.Sprintf("- %d blocks - %s", s.BlockCount, s.LastSaved.Format("2006-01-02 15:04:05"))),
				marker,
			)
		}
	})
}

// AIInfo prints the active provider and file policy.
func (r *Renderer) AIInfo(info ai.Info, policy files.Policy) {
	r.section("🤖", "AI PROVIDER INFORMATION", func(b *strings.Builder) {
		provider := strings.ToUpper(string(info.Provider))
		if info.Demo {
			provider += " (demo mode)"
		}
		r.field(b, "Provider", r.st.info.Render(provider))
		r.field(b, "Model", r.st.success.Render(info.Model))
		r.field(b, "Max Tokens", r.st.warning.Render(fmt.Sprint(info.MaxTokens)))
		r.field(b, "Max File Size", r.st.warning.Render(fmt.Sprintf("%.1f KB", float64(policy.MaxFileSize)/1024)))
		r.field(b, "Allowed Extensions", r.st.muted.Render(strings.Join(policy.AllowedExtensions, ", ")))
	})
}

// ProjectInfo prints the cached project analysis.
func (r *Renderer) ProjectInfo(a *project.Analysis) {
	r.section("📊", "PROJECT INFORMATION", func(b *strings.Builder) {
		name, version, kind := "Unknown", "N/A", "unknown"
		if p := a.Package; p != nil {
			name, kind = p.Name, p.Kind
			if p.Version != "" {
				version = p.Version
			}
		}
		r.field(b, "Project", r.st.info.Render(name))
		r.field(b, "Version", r.st.success.Render(version))
		r.field(b, "Type", r.st.warning.Render(kind))
		r.field(b, "Git Repository", r.st.accent.Render(fmt.Sprint(a.IsGitRepo)))
		r.field(b, "Files", r.st.accent.Render(fmt.Sprint(a.TotalFiles)))
		r.field(b, "Directories", r.st.accent.Render(fmt.Sprint(a.TotalDirectories)))
		r.field(b, "Lines of Code", r.st.accent.Render(fmt.Sprint(a.TotalLines)))
		r.field(b, "Total Size", r.st.accent.Render(fmt.Sprintf("%.2f MB", float64(a.TotalSize)/1024/1024)))

		exts := a.Extensions()
		sort.SliceStable(exts, func(i, j int) bool { return a.ByExtension[exts[i]].Lines > a.ByExtension[exts[j]].Lines })
		if len(exts) > 5 {
			exts = exts[:5]
		}
		if len(exts) > 0 {
			b.WriteString("\n" + r.st.muted.Render("  Top File Types:") + "\n")
		}
		for _, ext := range exts {
			es := a.ByExtension[ext]
			fmt.Fprintf(b, "    %s %s\n", r.st.muted.Render(ext+":"), r.st.text.Render(fmt.Sprintf("%d files, %d lines", es.Files, es.Lines)))
		}
	})
}
