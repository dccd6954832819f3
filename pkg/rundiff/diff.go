// Package rundiff compares two validation summaries to detect files that were added, removed, broken, fixed, or changed.
package rundiff

import (
	"sort"

	"github.com/odvcencio/osfcheck/pkg/model"
)

// Change pairs the before and after results of one path.
type Change struct {
	Path   string           `json:"path"`
	Before model.FileResult `json:"before"`
	After  model.FileResult `json:"after"`
}

type Stats struct {
	AddedFiles   int `json:"added_files"`
	RemovedFiles int `json:"removed_files"`
	BrokenFiles  int `json:"broken_files"`
	FixedFiles   int `json:"fixed_files"`
	ChangedFiles int `json:"changed_files"`
}

type Report struct {
	Added   []model.FileResult `json:"added,omitempty"`
	Removed []model.FileResult `json:"removed,omitempty"`
	Broken  []Change           `json:"broken,omitempty"`
	Fixed   []Change           `json:"fixed,omitempty"`
	Changed []Change           `json:"changed,omitempty"`
	Stats   Stats              `json:"stats"`
}

// Empty reports whether nothing differs between the two runs.
func (r Report) Empty() bool {
	return r.Stats == Stats{}
}

// Compare matches results by path. Changed covers files whose outcome kind is
// the same but whose block count or error message differs.
func Compare(before, after model.Summary) Report {
	report := Report{}
	beforeByPath := indexByPath(before.Results)
	afterByPath := indexByPath(after.Results)

	for path, next := range afterByPath {
		prev, exists := beforeByPath[path]
		if !exists {
			report.Added = append(report.Added, next)
			continue
		}

		change := Change{Path: path, Before: prev, After: next}
		switch {
		case prev.Success && !next.Success:
			report.Broken = append(report.Broken, change)
		case !prev.Success && next.Success:
			report.Fixed = append(report.Fixed, change)
		case prev.BlockCount != next.BlockCount || prev.Error != next.Error:
			report.Changed = append(report.Changed, change)
		}
	}
	for path, prev := range beforeByPath {
		if _, exists := afterByPath[path]; !exists {
			report.Removed = append(report.Removed, prev)
		}
	}

	sortResults(report.Added)
	sortResults(report.Removed)
	sortChanges(report.Broken)
	sortChanges(report.Fixed)
	sortChanges(report.Changed)

	report.Stats = Stats{
		AddedFiles:   len(report.Added),
		RemovedFiles: len(report.Removed),
		BrokenFiles:  len(report.Broken),
		FixedFiles:   len(report.Fixed),
		ChangedFiles: len(report.Changed),
	}
	return report
}

func indexByPath(results []model.FileResult) map[string]model.FileResult {
	out := make(map[string]model.FileResult, len(results))
	for _, result := range results {
		out[result.Path] = result
	}
	return out
}

func sortResults(results []model.FileResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
}

func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
}
