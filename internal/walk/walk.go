// Package walk discovers OSF files under a root directory.
package walk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/osfcheck/internal/ignore"
)

const DefaultExtension = ".osf"

// DefaultSkipDirs are never descended into, at any depth.
var DefaultSkipDirs = []string{"node_modules"}

type Options struct {
	Extension string
	SkipDirs  []string
	Ignore    *ignore.Matcher
	Sort      bool
}

type frame struct {
	dir     string
	entries []os.DirEntry
	next    int
}

// Find returns the paths of all files under root whose name ends with the
// configured extension, in depth-first pre-order. Directories starting with
// "." and skip directories are not entered. Any error reading a directory
// aborts the walk.
func Find(root string, opts Options) ([]string, error) {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.SkipDirs == nil {
		opts.SkipDirs = DefaultSkipDirs
	}
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, name := range opts.SkipDirs {
		skip[name] = true
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root: %s is not a directory", root)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}

	found := make([]string, 0)
	stack := []*frame{{dir: root, entries: entries}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		name := entry.Name()
		fullPath := filepath.Join(top.dir, name)
		isDir, isFile := classify(fullPath, entry)

		if isDir {
			if strings.HasPrefix(name, ".") || skip[name] || ignored(opts.Ignore, root, fullPath, true) {
				continue
			}
			children, err := os.ReadDir(fullPath)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", fullPath, err)
			}
			stack = append(stack, &frame{dir: fullPath, entries: children})
			continue
		}

		if !isFile || !strings.HasSuffix(name, opts.Extension) {
			continue
		}
		if ignored(opts.Ignore, root, fullPath, false) {
			continue
		}
		found = append(found, fullPath)
	}

	if opts.Sort {
		sort.Strings(found)
	}
	return found, nil
}

// classify reports whether entry is a directory to descend into or a file.
// Symlinks resolving to files count as files; symlinked directories are not
// followed and dangling links are neither. Not following directory links keeps
// the walk finite on link cycles, so do not switch this to os.Stat semantics.
func classify(fullPath string, entry os.DirEntry) (isDir bool, isFile bool) {
	mode := entry.Type()
	if mode&os.ModeSymlink != 0 {
		info, err := os.Stat(fullPath)
		if err != nil {
			return false, false
		}
		return false, info.Mode().IsRegular()
	}
	if mode.IsDir() {
		return true, false
	}
	return false, mode.IsRegular()
}

func ignored(m *ignore.Matcher, root, fullPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath, err := filepath.Rel(root, fullPath)
	if err != nil {
		return false
	}
	return m.Match(filepath.ToSlash(relPath), isDir)
}
