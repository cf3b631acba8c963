package dispatch

import (
	"context"
	"sort"

	"github.com/fentz26/blockterm/internal/command"
	"go.uber.org/zap"
)

type specialFunc func(d *Dispatcher, ctx context.Context, arg string)

// specials are the !-commands. They report on state and never create blocks.
var specials = map[string]specialFunc{
	"help":         func(d *Dispatcher, _ context.Context, _ string) { d.ui.Help() },
	"ai-help":      func(d *Dispatcher, _ context.Context, _ string) { d.ui.AIHelp() },
	"history":      func(d *Dispatcher, _ context.Context, _ string) { d.ui.History(d.History()) },
	"clear":        func(d *Dispatcher, _ context.Context, _ string) { d.ui.Clear() },
	"session":      func(d *Dispatcher, _ context.Context, _ string) { d.ui.Session(d.sessions.Blocks()) },
	"stats":        func(d *Dispatcher, _ context.Context, _ string) { d.ui.Stats(d.sessions.Stats()) },
	"sessions":     (*Dispatcher).showSessions,
	"ai-info":      (*Dispatcher).showAIInfo,
	"project-info": (*Dispatcher).showProjectInfo,
}

// SpecialCommands lists the special command names, sorted.
func SpecialCommands() []string {
	names := make([]string, 0, len(specials))
	for name := range specials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) special(ctx context.Context, cmd command.Command) {
	fn, ok := specials[cmd.Verb]
	if !ok {
		d.ui.Error("Unknown special command: " + cmd.Verb)
		return
	}
	d.logger.Debug("special command", zap.String("name", cmd.Verb))
	fn(d, ctx, cmd.Arg)
}

func (d *Dispatcher) showSessions(ctx context.Context, _ string) {
	list, err := d.sessions.ListSessions(ctx)
	if err != nil {
		d.ui.Error("listing sessions: " + err.Error())
		return
	}
	d.ui.Sessions(list, d.sessions.SessionID())
}

func (d *Dispatcher) showAIInfo(_ context.Context, _ string) {
	info := d.provider.Info()
	if info.MaxTokens == 0 {
		info.MaxTokens = d.aiOpts.MaxTokens
	}
	d.ui.AIInfo(info, d.files.Policy())
}

func (d *Dispatcher) showProjectInfo(_ context.Context, _ string) {
	an := d.Analysis()
	if an == nil {
		d.ui.Warning("No project analysis available. Run analyze first.")
		return
	}
	d.ui.ProjectInfo(an)
}
