package project

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SummaryPrompt asks the AI for an overview of the analyzed project.
func SummaryPrompt(a *Analysis) string {
	var b strings.Builder
	b.WriteString("Analyze this project and provide a comprehensive summary:\n\n")
	b.WriteString(facts(a))
	b.WriteString(`
Please provide:
1. Project type and purpose
2. Technology stack
3. Key components and structure
4. Development workflow suggestions
5. Potential improvements or issues
`)
	return b.String()
}

// QuestionPrompt asks a question about the analyzed project.
func QuestionPrompt(a *Analysis, question string) string {
	return "Project context:\n" + facts(a) + "\nQuestion about this project: " + question
}

func facts(a *Analysis) string {
	var b strings.Builder
	b.WriteString("PROJECT STRUCTURE:\n")
	fmt.Fprintf(&b, "- Root: %s\n", a.Root)
	fmt.Fprintf(&b, "- Total files: %d\n", a.TotalFiles)
	fmt.Fprintf(&b, "- Total directories: %d\n", a.TotalDirectories)
	fmt.Fprintf(&b, "- Git repository: %t\n", a.IsGitRepo)
	fmt.Fprintf(&b, "- File extensions: %s\n", strings.Join(a.Extensions(), ", "))

	b.WriteString("\nPACKAGE INFO:\n")
	if p := a.Package; p != nil {
		fmt.Fprintf(&b, "- Kind: %s\n", p.Kind)
		fmt.Fprintf(&b, "- Name: %s\n", p.Name)
		if p.Version != "" {
			fmt.Fprintf(&b, "- Version: %s\n", p.Version)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "- Description: %s\n", p.Description)
		}
		if p.Main != "" {
			fmt.Fprintf(&b, "- Main file: %s\n", p.Main)
		}
		if len(p.Scripts) > 0 {
			fmt.Fprintf(&b, "- Scripts: %s\n", strings.Join(p.Scripts, ", "))
		}
		if p.Kind == "go module" {
			fmt.Fprintf(&b, "- Direct dependencies: %d\n- Indirect dependencies: %d\n", p.Dependencies, p.DevDependencies)
		} else {
			fmt.Fprintf(&b, "- Dependencies: %d\n- Dev dependencies: %d\n", p.Dependencies, p.DevDependencies)
		}
	} else {
		b.WriteString("No go.mod or package.json found\n")
	}

	b.WriteString("\nCODE STATISTICS:\n")
	fmt.Fprintf(&b, "- Total lines of code: %d\n", a.TotalLines)
	fmt.Fprintf(&b, "- Total file size: %.2f MB\n", float64(a.TotalSize)/1024/1024)
	if byExt, err := json.Marshal(a.ByExtension); err == nil {
		fmt.Fprintf(&b, "- Files by extension: %s\n", byExt)
	}
	if len(a.LargestFiles) > 0 {
		parts := make([]string, len(a.LargestFiles))
		for i, f := range a.LargestFiles {
			parts[i] = fmt.Sprintf("%s (%d lines)", f.Path, f.Lines)
		}
		fmt.Fprintf(&b, "- Largest files: %s\n", strings.Join(parts, ", "))
	}
	return b.String()
}

// FormatSummary renders the analysis for display, followed by the AI summary
// from the last analyze run when there is one.
func FormatSummary(a *Analysis, aiSummary string) string {
	if a == nil {
		return "No project analysis available."
	}
	name, version, description := "Unknown", "N/A", "No description"
	if p := a.Package; p != nil {
		name = p.Name
		if p.Version != "" {
			version = p.Version
		}
		if p.Description != "" {
			description = p.Description
		}
	}

	var b strings.Builder
	b.WriteString("PROJECT SUMMARY\n")
	fmt.Fprintf(&b, "Project: %s\nVersion: %s\nDescription: %s\n\n", name, version, description)
	b.WriteString("STATISTICS:\n")
	fmt.Fprintf(&b, "- Total Files: %d\n", a.TotalFiles)
	fmt.Fprintf(&b, "- Total Directories: %d\n", a.TotalDirectories)
	fmt.Fprintf(&b, "- Total Lines of Code: %d\n", a.TotalLines)
	fmt.Fprintf(&b, "- Total Size: %.2f MB\n", float64(a.TotalSize)/1024/1024)

	exts := a.Extensions()
	sort.SliceStable(exts, func(i, j int) bool { return a.ByExtension[exts[i]].Lines > a.ByExtension[exts[j]].Lines })
	if len(exts) > 10 {
		exts = exts[:10]
	}
	if len(exts) > 0 {
		b.WriteString("\nTECHNOLOGIES:\n")
		for _, ext := range exts {
			es := a.ByExtension[ext]
			fmt.Fprintf(&b, "- %s: %d files, %d lines\n", ext, es.Files, es.Lines)
		}
	}
	if aiSummary != "" {
		b.WriteString("\nAI ANALYSIS:\n" + aiSummary + "\n")
	}
	return b.String()
}
