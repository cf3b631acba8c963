// Package command classifies raw input lines into the kind of work they request.
package command

import "strings"

// Kind is the routing class of an input line.
type Kind int

const (
	// System lines are run as local programs.
	System Kind = iota
	// AI lines are questions forwarded to the AI provider.
	AI
	// Project lines operate on files of the working tree.
	Project
	// Special lines are shell meta commands prefixed with "!".
	Special
)

func (k Kind) String() string {
	switch k {
	case AI:
		return "ai"
	case Project:
		return "project"
	case Special:
		return "special"
	default:
		return "system"
	}
}

// Verbs carried by classified commands.
const (
	VerbAsk     = "ask"
	VerbExplain = "explain"
	VerbAnalyze = "analyze"
	VerbRead    = "read"
	VerbEdit    = "edit"
	VerbProject = "project"
)

// Command is a classified input line.
type Command struct {
	Kind Kind
	// Verb is the matched rule verb; empty for System commands, the command
	// name for Special ones.
	Verb string
	// Arg is the input with the matched prefix stripped.
	Arg string
	// Raw is the trimmed input line.
	Raw string
}

// AIClass reports whether blocks created for this command count as AI blocks.
func (c Command) AIClass() bool {
	return c.Kind == AI || c.Kind == Project
}

type rule struct {
	prefix string
	// bare also matches the prefix alone, without trailing text.
	bare bool
	kind Kind
	verb string
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{prefix: "ai ", kind: AI, verb: VerbAsk},
	{prefix: "?", kind: AI, verb: VerbAsk},
	{prefix: "ask ", kind: AI, verb: VerbAsk},
	{prefix: "explain ", kind: AI, verb: VerbExplain},
	{prefix: "analyze", bare: true, kind: Project, verb: VerbAnalyze},
	{prefix: "read ", kind: Project, verb: VerbRead},
	{prefix: "edit ", kind: Project, verb: VerbEdit},
	{prefix: "project ", kind: Project, verb: VerbProject},
	{prefix: "project", bare: true, kind: Project, verb: VerbProject},
}

// Parse classifies a line. It never fails: anything unmatched is a System command.
func Parse(line string) Command {
	raw := strings.TrimSpace(line)
	if strings.HasPrefix(raw, "!") {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "!"))
		arg := ""
		if i := strings.IndexAny(name, " \t"); i >= 0 {
			name, arg = name[:i], strings.TrimSpace(name[i:])
		}
		return Command{Kind: Special, Verb: strings.ToLower(name), Arg: arg, Raw: raw}
	}

	for _, r := range rules {
		if r.bare && raw == r.prefix {
			return Command{Kind: r.kind, Verb: r.verb, Raw: raw}
		}
		if r.bare {
			// "analyze" also takes arguments; "analyzer" is not a match.
			if strings.HasPrefix(raw, r.prefix+" ") {
				return Command{Kind: r.kind, Verb: r.verb, Arg: strings.TrimSpace(raw[len(r.prefix):]), Raw: raw}
			}
			continue
		}
		if strings.HasPrefix(raw, r.prefix) {
			return Command{Kind: r.kind, Verb: r.verb, Arg: strings.TrimSpace(raw[len(r.prefix):]), Raw: raw}
		}
	}
	return Command{Kind: System, Arg: raw, Raw: raw}
}

// IsAICommand reports whether a line would create an AI block.
func IsAICommand(line string) bool {
	return Parse(line).AIClass()
}
