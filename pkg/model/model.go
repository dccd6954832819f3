// Package model defines the core data types for OSF validation: Block, Document, FileResult, and Summary.
package model

// Block is one top-level `@kind { ... }` section of an OSF document.
type Block struct {
	Kind       string            `json:"kind"`
	Line       int               `json:"line"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Document is the parsed form of an OSF file.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// BlockCount returns the number of top-level blocks in the document.
func (d *Document) BlockCount() int {
	if d == nil {
		return 0
	}
	return len(d.Blocks)
}

// Kinds returns the block kinds in document order.
func (d *Document) Kinds() []string {
	if d == nil || len(d.Blocks) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(d.Blocks))
	for _, block := range d.Blocks {
		kinds = append(kinds, block.Kind)
	}
	return kinds
}

// FileResult records the validation outcome of a single file.
// BlockCount and BlockKinds are set only on success, Error only on failure.
type FileResult struct {
	Path       string   `json:"path"`
	Success    bool     `json:"success"`
	BlockCount int      `json:"block_count,omitempty"`
	BlockKinds []string `json:"block_kinds,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Summary aggregates the results of one validation run.
type Summary struct {
	Root       string       `json:"root"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
}

// NewSummary counts results into a Summary.
func NewSummary(root string, results []FileResult) Summary {
	summary := Summary{
		Root:    root,
		Total:   len(results),
		Results: results,
	}
	for _, result := range results {
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// Failures returns the failed results in their original order.
func (s Summary) Failures() []FileResult {
	if s.Failed == 0 {
		return nil
	}
	out := make([]FileResult, 0, s.Failed)
	for _, result := range s.Results {
		if !result.Success {
			out = append(out, result)
		}
	}
	return out
}

// ExitCode is 0 when every file parsed and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
