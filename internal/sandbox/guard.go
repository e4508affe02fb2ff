// Package sandbox enforces path containment for every file operation the
// refactoring loop performs. All reads and writes on the working root go
// through Resolve, which rejects traversal, symlink escapes, and absolute
// paths pointing outside the root.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by ReadFile when the target file does not exist.
var ErrNotFound = errors.New("file not found")

// SecurityError reports an attempt to access a path outside the working root.
// It is always fatal to the operation that triggered it and must never be
// silently corrected.
type SecurityError struct {
	Path string
	Root string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation: path %q escapes working root %q", e.Path, e.Root)
}

// Resolve canonicalizes candidate and verifies it is a descendant of root.
// Relative candidates are interpreted relative to root. Symlinks are resolved
// on the deepest existing ancestor so that not-yet-created files can still be
// validated. The check is directory-separator aware: /sandbox does not
// contain /sandboxed.
//
// On success it returns the canonical absolute path. On violation it returns
// a *SecurityError.
func Resolve(candidate, root string) (string, error) {
	if candidate == "" {
		return "", &SecurityError{Path: candidate, Root: root}
	}

	canonRoot, err := canonicalRoot(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	abs := candidate
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(canonRoot, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := resolveSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", candidate, err)
	}

	if !isDescendant(canonRoot, resolved) {
		return "", &SecurityError{Path: candidate, Root: root}
	}

	return resolved, nil
}

// ReadFile reads a file after containment validation. A path outside root
// yields a *SecurityError; a missing file yields an error wrapping
// ErrNotFound.
func ReadFile(path, root string) (string, error) {
	resolved, err := Resolve(path, root)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes content after containment validation, creating
// intermediate directories as needed. The write is staged to a temporary
// file in the same directory and renamed into place, so an interrupted run
// never leaves a partially written file.
func WriteFile(path, content, root string) error {
	resolved, err := Resolve(path, root)
	if err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directories for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return fmt.Errorf("stage write for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, resolved); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ListSourceFiles recursively discovers source files with the given extension
// under root, skipping hidden directories, __pycache__, virtualenvs, and
// backup copies.
func ListSourceFiles(root, ext string) ([]string, error) {
	canonRoot, err := canonicalRoot(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}

	var files []string
	err = filepath.WalkDir(canonRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == canonRoot {
				return nil
			}
			if strings.HasPrefix(name, ".") || name == "__pycache__" || name == "venv" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".orig") {
			return nil
		}
		if filepath.Ext(name) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list source files under %s: %w", root, err)
	}
	return files, nil
}

// canonicalRoot resolves root to an absolute, symlink-free path.
// The root itself must exist.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolveSymlinks canonicalizes abs. When the final path component does not
// exist yet (a file about to be created), symlinks are resolved on the
// deepest existing ancestor and the remaining components are re-joined.
func resolveSymlinks(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	// Walk upward until an existing ancestor is found.
	var tail []string
	dir := abs
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor for %s", abs)
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent

		resolved, err = filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
}

// isDescendant reports whether path is root itself or a descendant of root,
// using filepath.Rel for a separator-aware comparison.
func isDescendant(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
