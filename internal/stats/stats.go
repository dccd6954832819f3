// Package stats aggregates block-kind metrics over a validation summary.
package stats

import (
	"sort"

	"github.com/odvcencio/osfcheck/pkg/model"
)

type Options struct {
	TopFiles int
}

type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

type FileMetric struct {
	Path   string `json:"path"`
	Blocks int    `json:"blocks"`
}

type Report struct {
	Root        string       `json:"root"`
	FileCount   int          `json:"file_count"`
	ParsedCount int          `json:"parsed_count"`
	FailedCount int          `json:"failed_count"`
	BlockCount  int          `json:"block_count"`
	KindCounts  []KindCount  `json:"kind_counts,omitempty"`
	TopFiles    []FileMetric `json:"top_files,omitempty"`
}

// Build counts blocks per kind across successful results. Failed results
// contribute only to FailedCount.
func Build(summary model.Summary, opts Options) Report {
	if opts.TopFiles <= 0 {
		opts.TopFiles = 10
	}

	kindCounts := map[string]int{}
	fileMetrics := make([]FileMetric, 0, len(summary.Results))
	blockCount := 0

	for _, result := range summary.Results {
		if !result.Success {
			continue
		}
		blockCount += result.BlockCount
		for _, kind := range result.BlockKinds {
			kindCounts[kind]++
		}
		fileMetrics = append(fileMetrics, FileMetric{
			Path:   result.Path,
			Blocks: result.BlockCount,
		})
	}

	kindList := make([]KindCount, 0, len(kindCounts))
	for kind, count := range kindCounts {
		kindList = append(kindList, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(kindList, func(i, j int) bool {
		if kindList[i].Count == kindList[j].Count {
			return kindList[i].Kind < kindList[j].Kind
		}
		return kindList[i].Count > kindList[j].Count
	})

	sort.Slice(fileMetrics, func(i, j int) bool {
		if fileMetrics[i].Blocks == fileMetrics[j].Blocks {
			return fileMetrics[i].Path < fileMetrics[j].Path
		}
		return fileMetrics[i].Blocks > fileMetrics[j].Blocks
	})
	if opts.TopFiles < len(fileMetrics) {
		fileMetrics = fileMetrics[:opts.TopFiles]
	}

	return Report{
		Root:        summary.Root,
		FileCount:   summary.Total,
		ParsedCount: summary.Successful,
		FailedCount: summary.Failed,
		BlockCount:  blockCount,
		KindCounts:  kindList,
		TopFiles:    fileMetrics,
	}
}
