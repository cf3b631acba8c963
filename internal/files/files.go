// Package files reads and writes project files under an extension allow-list
// and a size ceiling.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrFileTooLarge        = errors.New("file too large")
	ErrNotFound            = errors.New("file not found")
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{
	".js", ".ts", ".jsx", ".tsx", ".py", ".java", ".cpp", ".c", ".h", ".go",
	".json", ".md", ".txt", ".css", ".html", ".xml", ".yaml", ".yml",
}

// DefaultMaxFileSize is 1MB.
const DefaultMaxFileSize int64 = 1000000

// Policy bounds which files may be read or written.
type Policy struct {
	AllowedExtensions []string
	MaxFileSize       int64
}

// DefaultPolicy returns the default allow-list and size ceiling.
func DefaultPolicy() Policy {
	return Policy{
		AllowedExtensions: append([]string(nil), DefaultExtensions...),
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// Allows reports whether the path's extension is allowed.
func (p Policy) Allows(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, allowed := range p.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// File is the content of a file read under a Policy.
type File struct {
	Path      string
	Content   string
	Size      int64
	LineCount int
}

// Handler resolves paths against a base directory and enforces a Policy.
type Handler struct {
	policy Policy
	base   func() string
}

// NewHandler creates a Handler. base returns the directory relative paths are
// resolved against; it is consulted on every call so it can follow cd.
func NewHandler(policy Policy, base func() string) *Handler {
	if base == nil {
		base = func() string { wd, _ := os.Getwd(); return wd }
	}
	return &Handler{policy: policy, base: base}
}

// Policy returns the enforced policy.
func (h *Handler) Policy() Policy { return h.policy }

// Resolve returns the absolute path for a user-supplied path.
func (h *Handler) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(h.base(), path)
}

// Check verifies the path's extension against the policy.
func (h *Handler) Check(path string) error {
	if !h.policy.Allows(path) {
		ext := filepath.Ext(path)
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
	}
	return nil
}

// CheckSize verifies content against the size ceiling.
func (h *Handler) CheckSize(size int64) error {
	if h.policy.MaxFileSize > 0 && size > h.policy.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, h.policy.MaxFileSize)
	}
	return nil
}

// ReadFile reads an allowed file that is within the size ceiling.
func (h *Handler) ReadFile(path string) (*File, error) {
	if err := h.Check(path); err != nil {
		return nil, err
	}
	full := h.Resolve(path)

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if err := h.CheckSize(info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	return &File{
		Path:      full,
		Content:   content,
		Size:      int64(len(data)),
		LineCount: CountLines(content),
	}, nil
}

// WriteFile writes content to an allowed path, keeping the mode of an existing file.
func (h *Handler) WriteFile(path, content string) error {
	if err := h.Check(path); err != nil {
		return err
	}
	if err := h.CheckSize(int64(len(content))); err != nil {
		return err
	}
	full := h.Resolve(path)

	mode := os.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(full, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CountLines counts lines the way an editor shows them: "a\nb" and "a\nb\n"
// both have two lines, and the empty string has one.
func CountLines(s string) int {
	return len(SplitLines(s))
}

// SplitLines splits content into lines, dropping a single trailing newline.
func SplitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
