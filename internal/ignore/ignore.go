// Package ignore implements a gitignore-style path matcher loaded from .osfignore files.
package ignore

import (
	"bufio"
	"os"
	"path"
	"strings"
)

// FileName is the ignore file looked up at the scan root.
const FileName = ".osfignore"

type pattern struct {
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// Matcher evaluates slash-separated relative paths against ordered patterns.
// The last matching pattern decides; a nil Matcher matches nothing.
type Matcher struct {
	patterns []pattern
}

func ParsePatterns(lines []string) *Matcher {
	m := &Matcher{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		p := pattern{}
		if strings.HasPrefix(trimmed, "!") {
			p.negate = true
			trimmed = trimmed[1:]
		}
		if strings.HasSuffix(trimmed, "/") {
			p.dirOnly = true
			trimmed = strings.TrimSuffix(trimmed, "/")
		}
		trimmed = strings.TrimPrefix(trimmed, "/")
		if trimmed == "" {
			continue
		}
		p.anchored = strings.Contains(trimmed, "/")
		p.glob = trimmed
		m.patterns = append(m.patterns, p)
	}
	return m
}

func Load(filePath string) (*Matcher, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ParsePatterns(lines), nil
}

// LoadOptional loads filePath, returning a nil Matcher when it is empty or does not exist.
func LoadOptional(filePath string) (*Matcher, error) {
	if filePath == "" {
		return nil, nil
	}
	m, err := Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	relPath = strings.Trim(relPath, "/")
	base := path.Base(relPath)
	matched := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		var ok bool
		if p.anchored {
			ok, _ = path.Match(p.glob, relPath)
		} else {
			ok, _ = path.Match(p.glob, base)
		}
		if ok {
			matched = !p.negate
		}
	}
	return matched
}
