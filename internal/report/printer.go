package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/odvcencio/osfcheck/internal/lang"
	"github.com/odvcencio/osfcheck/pkg/model"
)

var banner = strings.Repeat("=", 80)

// Printer writes the console report. Failure lines go to Err, everything else to Out.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

func NewPrinter(out, errOut io.Writer) *Printer {
	if errOut == nil {
		errOut = out
	}
	return &Printer{Out: out, Err: errOut}
}

func (p *Printer) Header(found int) {
	fmt.Fprintln(p.Out, banner)
	fmt.Fprintln(p.Out, "OSF Examples Validation")
	fmt.Fprintln(p.Out, banner)
	fmt.Fprintln(p.Out)
	fmt.Fprintf(p.Out, "Found %d OSF files\n\n", found)
}

func (p *Printer) Result(result model.FileResult) {
	if result.Success {
		fmt.Fprintf(p.Out, "✓ %s\n", result.Path)
		return
	}
	fmt.Fprintf(p.Err, "✗ %s\n", result.Path)
	fmt.Fprintf(p.Err, "  Error: %s\n", result.Error)
}

func (p *Printer) Summary(summary model.Summary) {
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, banner)
	fmt.Fprintln(p.Out, "Validation Summary")
	fmt.Fprintln(p.Out, banner)
	fmt.Fprintf(p.Out, "Total files: %d\n", summary.Total)
	fmt.Fprintf(p.Out, "Successful: %d ✓\n", summary.Successful)
	fmt.Fprintf(p.Out, "Failed: %d ✗\n", summary.Failed)

	fmt.Fprintln(p.Out)
	if summary.Failed > 0 {
		fmt.Fprintln(p.Out, "Failed files:")
		for _, result := range summary.Failures() {
			fmt.Fprintf(p.Out, "  - %s: %s\n", result.Path, result.Error)
		}
		return
	}
	fmt.Fprintln(p.Out, "✓ All examples validated successfully!")
}

// Run validates paths while streaming the console report through printer.
// A nil printer validates silently.
func Run(ctx context.Context, root string, paths []string, parser lang.Parser, printer *Printer, opts Options) (model.Summary, error) {
	if printer != nil {
		printer.Header(len(paths))
		onResult := opts.OnResult
		opts.OnResult = func(result model.FileResult) {
			printer.Result(result)
			if onResult != nil {
				onResult(result)
			}
		}
	}

	results, err := Validate(ctx, paths, parser, opts)
	if err != nil {
		return model.Summary{}, err
	}

	summary := model.NewSummary(root, results)
	if printer != nil {
		printer.Summary(summary)
	}
	return summary, nil
}

// WriteJSON writes value as indented JSON followed by a newline.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
