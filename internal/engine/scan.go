package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnmatchedQuote reports a quoted field that was never closed, or a closed
// quote followed by something other than a separator.
var ErrUnmatchedQuote = errors.New("unmatched quote")

// ScanError carries the 1-based source position of a grammar failure.
type ScanError struct {
	Line   int
	Column int
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Terminator classifies what ended a field.
type Terminator int

const (
	// TermField means a separator followed: more fields belong to the record.
	TermField Terminator = iota
	// TermRecord means an unquoted line terminator ended the record.
	TermRecord
	// TermEOF means the source is exhausted; the field is the record's last.
	TermEOF
)

// Field is one scanned field: its text (trimmed or quote-unescaped, with
// embedded line endings normalized to LF) and the 1-based position of its
// first byte.
type Field struct {
	Text   string
	Line   int
	Column int
}

// Scanner locates field boundaries over a Window: separator resolution,
// quoted-field grammar, and line/column bookkeeping. It has no notion of
// headers or records; the session layer drives it field by field.
type Scanner struct {
	w         *Window
	sep       byte // zero until resolved
	pos       int64
	line      int
	lineStart int64
}

// NewScanner creates a scanner over w. A zero sep means the separator is
// detected as the first comma or tab anywhere in the stream; note that a
// quoted occurrence of the other candidate earlier in the stream wins, so
// ambiguous inputs should configure the separator explicitly.
func NewScanner(w *Window, sep byte) *Scanner {
	return &Scanner{w: w, sep: sep, line: 1}
}

// Separator returns the active separator byte, or zero before resolution.
func (s *Scanner) Separator() byte { return s.sep }

func (s *Scanner) resolveSep() {
	if s.sep != 0 {
		return
	}
	if _, b, ok := s.w.IndexAny(s.pos, []byte{',', '\t'}); ok {
		s.sep = b
		return
	}
	s.sep = ','
}

// Next scans one field. The returned Terminator tells the caller whether the
// record continues, ended, or the source ran out. At end of input with no
// pending bytes it reports an empty field with TermEOF; the caller owns
// end-of-stream bookkeeping.
func (s *Scanner) Next() (Field, Terminator, error) {
	s.resolveSep()
	f := Field{Line: s.line, Column: int(s.pos - s.lineStart + 1)}
	c, ok := s.w.ByteAt(s.pos)
	if !ok {
		if err := s.w.Err(); err != nil {
			return f, TermEOF, err
		}
		return f, TermEOF, nil
	}
	if c == '"' {
		return s.quoted(f)
	}
	return s.unquoted(f)
}

func (s *Scanner) unquoted(f Field) (Field, Terminator, error) {
	p, b, ok := s.w.IndexAny(s.pos, []byte{s.sep, '\r', '\n'})
	if err := s.w.Err(); err != nil {
		return f, TermEOF, err
	}
	f.Text = strings.TrimSpace(s.w.Slice(s.pos, p))
	if !ok {
		s.pos = p
		s.w.Truncate(s.pos)
		return f, TermEOF, nil
	}
	return f, s.consumeTerminator(p, b), nil
}

func (s *Scanner) quoted(f Field) (Field, Terminator, error) {
	start := s.pos + 1 // past the opening quote
	p := start
	for {
		q, _, ok := s.w.IndexAny(p, []byte{'"'})
		if !ok {
			if err := s.w.Err(); err != nil {
				return f, TermEOF, err
			}
			return f, TermEOF, &ScanError{Line: f.Line, Column: f.Column, Err: ErrUnmatchedQuote}
		}
		if nb, ok := s.w.ByteAt(q + 1); ok && nb == '"' {
			p = q + 2 // escaped quote, keep scanning
			continue
		}
		f.Text = normalizeNewlines(strings.ReplaceAll(s.w.Slice(start, q), `""`, `"`))
		s.advanceLines(s.pos, q+1)
		s.pos = q + 1
		return s.afterQuote(f)
	}
}

// afterQuote requires the next non-space byte after a closing quote to be a
// separator, line terminator, or end of input.
func (s *Scanner) afterQuote(f Field) (Field, Terminator, error) {
	for {
		c, ok := s.w.ByteAt(s.pos)
		if !ok {
			if err := s.w.Err(); err != nil {
				return f, TermEOF, err
			}
			s.w.Truncate(s.pos)
			return f, TermEOF, nil
		}
		switch c {
		case s.sep, '\r', '\n':
			return f, s.consumeTerminator(s.pos, c), nil
		case ' ', '\t':
			s.pos++
		default:
			err := &ScanError{Line: s.line, Column: int(s.pos - s.lineStart + 1), Err: ErrUnmatchedQuote}
			return f, TermEOF, err
		}
	}
}

// consumeTerminator advances past the separator or line terminator at p,
// collapsing CR LF into one record end, and truncates the window behind the
// new position.
func (s *Scanner) consumeTerminator(p int64, b byte) Terminator {
	switch b {
	case '\r':
		if nb, ok := s.w.ByteAt(p + 1); ok && nb == '\n' {
			p++
		}
		fallthrough
	case '\n':
		s.pos = p + 1
		s.line++
		s.lineStart = s.pos
		s.w.Truncate(s.pos)
		return TermRecord
	default:
		s.pos = p + 1
		s.w.Truncate(s.pos)
		return TermField
	}
}

// advanceLines counts the physical line terminators in the absolute range
// [a, b), updating the current line and line start. A field spanning N
// physical lines advances the counter by N-1 for the diagnostics of every
// field after it.
func (s *Scanner) advanceLines(a, b int64) {
	raw := s.w.Slice(a, b)
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\n':
			s.line++
			s.lineStart = a + int64(i) + 1
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				continue // counted at the LF
			}
			s.line++
			s.lineStart = a + int64(i) + 1
		}
	}
}

func normalizeNewlines(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
