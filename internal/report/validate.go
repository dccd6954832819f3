// Package report validates discovered files with a parser and renders the results.
package report

import (
	"context"
	"os"

	"github.com/odvcencio/osfcheck/internal/lang"
	"github.com/odvcencio/osfcheck/internal/resultcache"
	"github.com/odvcencio/osfcheck/pkg/model"
)

type Options struct {
	// Cache, when set, is consulted before parsing and filled after.
	Cache *resultcache.Cache
	// OnResult is called after each file, in processing order.
	OnResult func(model.FileResult)
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Validate parses every path in order and returns one result per path.
// Read and parse failures become failed results; only cancellation of ctx
// stops the run early, returning the results gathered so far.
func Validate(ctx context.Context, paths []string, parser lang.Parser, opts Options) ([]model.FileResult, error) {
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	results := make([]model.FileResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := validateFile(path, parser, readFile, opts.Cache)
		results = append(results, result)
		if opts.OnResult != nil {
			opts.OnResult(result)
		}
	}
	return results, nil
}

func validateFile(path string, parser lang.Parser, readFile func(string) ([]byte, error), cache *resultcache.Cache) model.FileResult {
	source, err := readFile(path)
	if err != nil {
		return model.FileResult{Path: path, Error: err.Error()}
	}

	if entry, ok := cache.Get(source); ok {
		return resultFromEntry(path, entry)
	}

	doc, err := parser.Parse(string(source))
	if err != nil {
		cache.Add(source, resultcache.Entry{Failed: true, Error: err.Error()})
		return model.FileResult{Path: path, Error: err.Error()}
	}

	kinds := doc.Kinds()
	cache.Add(source, resultcache.Entry{BlockKinds: kinds})
	return model.FileResult{
		Path:       path,
		Success:    true,
		BlockCount: doc.BlockCount(),
		BlockKinds: kinds,
	}
}

func resultFromEntry(path string, entry resultcache.Entry) model.FileResult {
	if entry.Failed {
		return model.FileResult{Path: path, Error: entry.Error}
	}
	return model.FileResult{
		Path:       path,
		Success:    true,
		BlockCount: len(entry.BlockKinds),
		BlockKinds: entry.BlockKinds,
	}
}
