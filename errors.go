package csvstream

import (
	"fmt"
	"strings"

	"github.com/reoring/csvstream/internal/engine"
)

// ErrUnmatchedQuote reports a quoted field that was never closed, or a closed
// quote followed by something other than a separator. It is fatal to the
// session; records yielded before it remain valid.
var ErrUnmatchedQuote = engine.ErrUnmatchedQuote

// ParseError is a positioned failure, rendered as
// "<name>:<line>:<column>: <message>" with 1-based line and column.
type ParseError struct {
	Name   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.Name, e.Line, e.Column, e.Err)
}

// Unwrap exposes the underlying cause so errors.Is can match sentinels such
// as ErrUnmatchedQuote.
func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnsError aggregates every configured logical column that did not
// match any header cell. It is produced once, before any data row is yielded.
type MissingColumnsError struct {
	// Columns holds the missing logical names in sorted order.
	Columns []string
	// Aliases holds, per missing column, the acceptable header names.
	Aliases [][]string
}

func (e *MissingColumnsError) Error() string {
	b := &strings.Builder{}
	for i, aliases := range e.Aliases {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "no column found for %s", quoteJoin(aliases))
	}
	return b.String()
}

// quoteJoin renders names as 'a', 'b' or 'c'.
func quoteJoin(names []string) string {
	b := &strings.Builder{}
	for i, n := range names {
		switch {
		case i == 0:
		case i == len(names)-1:
			b.WriteString(" or ")
		default:
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "'%s'", n)
	}
	return b.String()
}
