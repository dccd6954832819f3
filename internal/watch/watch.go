// Package watch reports debounced filesystem changes under a root directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/odvcencio/osfcheck/internal/ignore"
	"github.com/odvcencio/osfcheck/internal/walk"
)

const DefaultDebounce = 250 * time.Millisecond

type Options struct {
	Debounce time.Duration
	SkipDirs []string
	Ignore   *ignore.Matcher
	Logger   *zap.Logger
}

// Run watches root recursively and calls onChange with the sorted set of
// changed paths once events settle for the debounce interval. It returns nil
// when ctx is done and the watcher error otherwise.
func Run(ctx context.Context, root string, opts Options, onChange func(changed []string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absRoot = filepath.Clean(absRoot)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = walk.DefaultSkipDirs
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, name := range skipDirs {
		skip[name] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, absRoot, absRoot, skip, opts.Ignore); err != nil {
		return err
	}
	logger.Info("watching", zap.String("root", absRoot), zap.Duration("debounce", debounce))

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			eventPath := filepath.Clean(event.Name)
			if ShouldIgnorePath(absRoot, eventPath, opts.Ignore) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(eventPath); statErr == nil && info.IsDir() {
					if ShouldSkipDir(absRoot, eventPath, info.Name(), skip, opts.Ignore) {
						continue
					}
					if addErr := addRecursive(watcher, eventPath, absRoot, skip, opts.Ignore); addErr != nil {
						logger.Warn("add watch failed", zap.String("path", eventPath), zap.Error(addErr))
					}
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("change", zap.String("path", eventPath), zap.String("op", event.Op.String()))
			resetDebounce(eventPath)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			changed := make([]string, 0, len(pendingPaths))
			for path := range pendingPaths {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pendingPaths = map[string]bool{}
			onChange(changed)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, dir, root string, skip map[string]bool, m *ignore.Matcher) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if ShouldSkipDir(root, path, entry.Name(), skip, m) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// ShouldSkipDir applies the discovery skip rule to a directory below root.
func ShouldSkipDir(root, path, name string, skip map[string]bool, m *ignore.Matcher) bool {
	if path == root {
		return false
	}
	if strings.HasPrefix(name, ".") || skip[name] {
		return true
	}
	if m != nil {
		if relPath, err := filepath.Rel(root, path); err == nil {
			return m.Match(filepath.ToSlash(relPath), true)
		}
	}
	return false
}

// ShouldIgnorePath filters editor temp files and ignore-matched files.
func ShouldIgnorePath(root, path string, m *ignore.Matcher) bool {
	base := filepath.Base(path)
	if base == ".DS_Store" || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swx") || strings.HasSuffix(base, "~") || strings.HasPrefix(base, ".#") {
		return true
	}
	if m != nil {
		if relPath, err := filepath.Rel(root, path); err == nil {
			return m.Match(filepath.ToSlash(relPath), false)
		}
	}
	return false
}
