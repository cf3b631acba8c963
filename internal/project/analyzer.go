// Package project inspects the working tree to give AI commands project context.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fentz26/blockterm/internal/files"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
)

var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true, ".next": true,
	".nuxt": true, "coverage": true, ".nyc_output": true, "vendor": true,
}

var ignoredFiles = []string{"*.log", ".env*", ".DS_Store", "Thumbs.db"}

const largestFilesLimit = 5

// PackageInfo is metadata from a go.mod or package.json at the project root.
type PackageInfo struct {
	Kind            string   `json:"kind"`
	Name            string   `json:"name"`
	Version         string   `json:"version,omitempty"`
	Description     string   `json:"description,omitempty"`
	Main            string   `json:"main,omitempty"`
	Scripts         []string `json:"scripts,omitempty"`
	Dependencies    int      `json:"dependencies"`
	DevDependencies int      `json:"devDependencies"`
}

// ExtensionStats aggregates code files sharing an extension.
type ExtensionStats struct {
	Files int   `json:"files"`
	Lines int   `json:"lines"`
	Size  int64 `json:"size"`
}

// FileStat describes one code file.
type FileStat struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
	Size  int64  `json:"size"`
}

// Analysis is a snapshot of the project tree.
type Analysis struct {
	Timestamp        time.Time                 `json:"timestamp"`
	Root             string                    `json:"root"`
	TotalFiles       int                       `json:"totalFiles"`
	TotalDirectories int                       `json:"totalDirectories"`
	IsGitRepo        bool                      `json:"isGitRepo"`
	Package          *PackageInfo              `json:"package,omitempty"`
	TotalLines       int                       `json:"totalLines"`
	TotalSize        int64                     `json:"totalSize"`
	ByExtension      map[string]ExtensionStats `json:"byExtension"`
	LargestFiles     []FileStat                `json:"largestFiles"`
}

// Extensions returns the code file extensions found, sorted.
func (a *Analysis) Extensions() []string {
	exts := make([]string, 0, len(a.ByExtension))
	for ext := range a.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Analyzer walks the project tree.
type Analyzer struct {
	root   func() string
	policy files.Policy
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. root is consulted on each run so the
// analysis follows the shell's working directory. Code statistics cover the
// files the policy allows.
func NewAnalyzer(root func() string, policy files.Policy, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{root: root, policy: policy, logger: logger}
}

// Analyze walks the tree and collects structure, package and code statistics.
func (a *Analyzer) Analyze(ctx context.Context) (*Analysis, error) {
	root := a.root()
	start := time.Now()
	an := &Analysis{
		Timestamp:   start,
		Root:        root,
		ByExtension: make(map[string]ExtensionStats),
	}

	if info, err := os.Stat(filepath.Join(root, ".git")); err == nil && info.IsDir() {
		an.IsGitRepo = true
	}

	var code []FileStat
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if ignoredDirs[name] {
				return fs.SkipDir
			}
			an.TotalDirectories++
			return nil
		}
		if ignoredFile(name) {
			return nil
		}
		an.TotalFiles++

		if !a.policy.Allows(name) {
			return nil
		}
		stat, ok := a.codeStat(root, path)
		if !ok {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		es := an.ByExtension[ext]
		es.Files++
		es.Lines += stat.Lines
		es.Size += stat.Size
		an.ByExtension[ext] = es
		an.TotalLines += stat.Lines
		an.TotalSize += stat.Size
		code = append(code, stat)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.SliceStable(code, func(i, j int) bool { return code[i].Lines > code[j].Lines })
	if len(code) > largestFilesLimit {
		code = code[:largestFilesLimit]
	}
	an.LargestFiles = code

	pkg, err := readPackageInfo(root)
	if err != nil {
		a.logger.Warn("reading package metadata", zap.Error(err))
	}
	an.Package = pkg

	a.logger.Info("project analyzed",
		zap.String("root", root),
		zap.Int("files", an.TotalFiles),
		zap.Duration("elapsed", time.Since(start)),
	)
	return an, nil
}

func (a *Analyzer) codeStat(root, path string) (FileStat, bool) {
	info, err := os.Stat(path)
	if err != nil || (a.policy.MaxFileSize > 0 && info.Size() > a.policy.MaxFileSize) {
		return FileStat{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileStat{}, false
	}
	rel, _ := filepath.Rel(root, path)
	return FileStat{
		Path:  filepath.ToSlash(rel),
		Lines: files.CountLines(string(data)),
		Size:  int64(len(data)),
	}, true
}

func ignoredFile(name string) bool {
	for _, pattern := range ignoredFiles {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func readPackageInfo(root string) (*PackageInfo, error) {
	if data, err := os.ReadFile(filepath.Join(root, "go.mod")); err == nil {
		return parseGoMod(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read go.mod: %w", err)
	}

	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		return parsePackageJSON(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read package.json: %w", err)
	}
	return nil, nil
}

func parseGoMod(data []byte) (*PackageInfo, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse go.mod: %w", err)
	}
	info := &PackageInfo{Kind: "go module"}
	if f.Module != nil {
		info.Name = f.Module.Mod.Path
	}
	if f.Go != nil {
		info.Version = "go " + f.Go.Version
	}
	for _, r := range f.Require {
		if r.Indirect {
			info.DevDependencies++
		} else {
			info.Dependencies++
		}
	}
	return info, nil
}

func parsePackageJSON(data []byte) (*PackageInfo, error) {
	var pkg struct {
		Name            string            `json:"name"`
		Version         string            `json:"version"`
		Description     string            `json:"description"`
		Main            string            `json:"main"`
		Scripts         map[string]string `json:"scripts"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	info := &PackageInfo{
		Kind:            "npm package",
		Name:            pkg.Name,
		Version:         pkg.Version,
		Description:     pkg.Description,
		Main:            pkg.Main,
		Dependencies:    len(pkg.Dependencies),
		DevDependencies: len(pkg.DevDependencies),
	}
	for name := range pkg.Scripts {
		info.Scripts = append(info.Scripts, name)
	}
	sort.Strings(info.Scripts)
	return info, nil
}
