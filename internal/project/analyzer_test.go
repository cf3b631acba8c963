package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/blockterm/internal/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for name, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestAnalyzeGoModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod": "module example.com/tool\n\ngo 1.22\n\nrequire (\n\tgithub.com/spf13/cobra v1.8.0\n\tgithub.com/spf13/pflag v1.0.5 // indirect\n)\n",
		"main.go":                   "package main\n\nfunc main() {}\n",
		"internal/x/x.go":           "package x\n",
		"README.md":                 "# tool\n",
		"debug.log":                 "ignored\n",
		"node_modules/pkg/index.js": "ignored\n",
		".git/HEAD":                 "ref: refs/heads/main\n",
		"image.png":                 "binary",
	})

	a := NewAnalyzer(func() string { return root }, files.DefaultPolicy(), nil)
	an, err := a.Analyze(context.Background())
	require.NoError(t, err)

	assert.True(t, an.IsGitRepo)
	// go.mod, main.go, x.go, README.md, image.png
	assert.Equal(t, 5, an.TotalFiles)
	// internal, internal/x
	assert.Equal(t, 2, an.TotalDirectories)

	require.NotNil(t, an.Package)
	assert.Equal(t, "go module", an.Package.Kind)
	assert.Equal(t, "example.com/tool", an.Package.Name)
	assert.Equal(t, "go 1.22", an.Package.Version)
	assert.Equal(t, 1, an.Package.Dependencies)
	assert.Equal(t, 1, an.Package.DevDependencies)

	assert.Equal(t, []string{".go", ".md"}, an.Extensions())
	assert.Equal(t, 2, an.ByExtension[".go"].Files)
	assert.Equal(t, 4, an.TotalLines)
	require.NotEmpty(t, an.LargestFiles)
	assert.Equal(t, "main.go", an.LargestFiles[0].Path)
}

func TestAnalyzePackageJSON(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"name":"web","version":"1.2.0","main":"index.js","scripts":{"test":"jest","build":"tsc"},"dependencies":{"a":"1"},"devDependencies":{"b":"1","c":"1"}}`,
		"index.js":     "console.log(1)\n",
	})

	an, err := NewAnalyzer(func() string { return root }, files.DefaultPolicy(), nil).Analyze(context.Background())
	require.NoError(t, err)

	require.NotNil(t, an.Package)
	assert.Equal(t, "npm package", an.Package.Kind)
	assert.Equal(t, []string{"build", "test"}, an.Package.Scripts)
	assert.Equal(t, 1, an.Package.Dependencies)
	assert.Equal(t, 2, an.Package.DevDependencies)
	assert.False(t, an.IsGitRepo)
}

func TestAnalyzeCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(func() string { return root }, files.DefaultPolicy(), nil).Analyze(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompts(t *testing.T) {
	an := &Analysis{
		Root:        "/src/tool",
		TotalFiles:  3,
		Package:     &PackageInfo{Kind: "go module", Name: "example.com/tool"},
		ByExtension: map[string]ExtensionStats{".go": {Files: 2, Lines: 10}},
	}

	summary := SummaryPrompt(an)
	assert.True(t, strings.HasPrefix(summary, "Analyze this project"))
	assert.Contains(t, summary, "- Name: example.com/tool")
	assert.Contains(t, summary, "- Direct dependencies: 0")

	q := QuestionPrompt(an, "where is main?")
	assert.True(t, strings.HasSuffix(q, "Question about this project: where is main?"))

	an.Package = nil
	assert.Contains(t, SummaryPrompt(an), "No go.mod or package.json found")
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, "No project analysis available.", FormatSummary(nil, ""))

	an := &Analysis{
		TotalFiles: 2,
		ByExtension: map[string]ExtensionStats{
			".md": {Files: 1, Lines: 3},
			".go": {Files: 1, Lines: 40},
		},
	}
	out := FormatSummary(an, "A small CLI.")
	assert.Contains(t, out, "Project: Unknown")
	assert.Contains(t, out, "AI ANALYSIS:\nA small CLI.")
	assert.Less(t, strings.Index(out, "- .go:"), strings.Index(out, "- .md:"))
}
