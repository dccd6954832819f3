// Package lang defines the Parser interface for document formats checked by osfcheck.
package lang

import "github.com/odvcencio/osfcheck/pkg/model"

// Parser turns source text into a Document. A non-nil error means the
// source is malformed; its message is reported to the user verbatim.
type Parser interface {
	Format() string
	Parse(src string) (model.Document, error)
}
