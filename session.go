package csvstream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/reoring/csvstream/internal/engine"
)

// Session is one forward-only pass over a delimited source. Records are
// produced lazily: no scanning happens until Next is called, and the session
// resumes exactly where it suspended. A session is not restartable; open a
// fresh one to reread from the start. Sessions are not safe for concurrent
// use, but independent sessions share no state.
type Session struct {
	name string
	w    *engine.Window
	sc   *engine.Scanner
	opt  Options

	nameMap  columnNameMap
	indexMap columnIndexMap
	header   []string

	err    error // sticky mid-stream failure
	eof    bool
	closed bool
}

// Open starts a session over the file at path. The open failure is an
// ordinary returned error; everything after that surfaces through Next.
// Close releases the file.
func Open(path string, opt Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewSession(f, path, opt), nil
}

// OpenString starts a session over an in-memory string. It never blocks. The
// session name defaults to a truncated preview of the text.
func OpenString(text string, opt Options) *Session {
	return NewSession(strings.NewReader(text), stringName(text), opt)
}

// NewSession starts a session over an arbitrary reader. name is used in
// diagnostics. If r is an io.Closer, Close closes it exactly once.
func NewSession(r io.Reader, name string, opt Options) *Session {
	w := engine.NewWindow(r, opt.blockSize())
	s := &Session{
		name: name,
		w:    w,
		sc:   engine.NewScanner(w, opt.Separator),
		opt:  opt,
	}
	if len(opt.Columns) > 0 {
		s.nameMap = buildColumnNameMap(opt.Columns)
	}
	return s
}

// Name returns the session's diagnostic name: the path for file sessions, a
// truncated preview for string sessions.
func (s *Session) Name() string { return s.name }

// Close releases the underlying source. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.w.Close()
}

// Next returns the next record, or io.EOF when the source is exhausted. Any
// other error is fatal to the session: records yielded earlier remain valid,
// but iteration must not be resumed.
func (s *Session) Next() (*Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	for {
		if s.eof {
			return nil, io.EOF
		}
		fields, err := s.scanRecord()
		if err != nil {
			s.err = err
			return nil, err
		}
		rec, err := s.assemble(fields)
		if err != nil {
			s.err = err
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
		// header row, blank line, or fully unmapped record: keep scanning
	}
}

// All returns a range-over-func view of the remaining records. io.EOF ends
// the sequence silently; any other error is yielded once with a nil record.
func (s *Session) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// scanRecord pulls fields until a record terminator or end of input.
func (s *Session) scanRecord() ([]engine.Field, error) {
	var fields []engine.Field
	for {
		f, term, err := s.sc.Next()
		if err != nil {
			return nil, s.wrap(err)
		}
		fields = append(fields, f)
		switch term {
		case engine.TermField:
			continue
		case engine.TermEOF:
			s.eof = true
		}
		return fields, nil
	}
}

// assemble turns one scanned record into an output Record, or nil when the
// record is consumed internally (header row) or suppressed (blank line).
func (s *Session) assemble(fields []engine.Field) (*Record, error) {
	if s.nameMap != nil && s.indexMap == nil {
		// first record is the header: resolve and validate the column
		// mapping, then discard the record
		header := make([]string, len(fields))
		for i, f := range fields {
			header[i] = f.Text
		}
		m, err := buildColumnIndexMap(header, s.nameMap)
		if err != nil {
			return nil, &ParseError{Name: s.name, Line: fields[0].Line, Column: fields[0].Column, Err: err}
		}
		s.indexMap = m
		return nil, nil
	}
	if s.nameMap == nil && s.opt.Header && s.header == nil {
		s.header = make([]string, len(fields))
		for i, f := range fields {
			s.header[i] = f.Text
		}
		return nil, nil
	}
	if len(fields) == 1 && fields[0].Text == "" {
		return nil, nil // blank line
	}
	if !s.opt.mapped() {
		rec := &Record{
			Fields:   make([]string, len(fields)),
			FieldPos: make([]Position, len(fields)),
		}
		for i, f := range fields {
			rec.Fields[i] = f.Text
			rec.FieldPos[i] = Position{Line: f.Line, Column: f.Column}
		}
		return rec, nil
	}
	rec := &Record{
		Values:   make(map[string]any, len(fields)),
		ValuePos: make(map[string]Position, len(fields)),
	}
	for i, f := range fields {
		var key string
		var value any
		if s.indexMap != nil {
			name, v, ok, err := s.indexMap.transformField(f.Text, i)
			if err != nil {
				return nil, &ParseError{Name: s.name, Line: f.Line, Column: f.Column, Err: err}
			}
			if !ok {
				continue // unmapped file column
			}
			key, value = name, v
		} else {
			key, value = s.headerKey(i), f.Text
		}
		rec.Values[key] = value
		rec.ValuePos[key] = Position{Line: f.Line, Column: f.Column}
	}
	if len(rec.Values) == 0 {
		return nil, nil // every file column was unmapped
	}
	return rec, nil
}

// headerKey derives the key for the field at index i from the captured
// header, falling back to the 1-based position for rows wider than the
// header.
func (s *Session) headerKey(i int) string {
	if i < len(s.header) {
		return s.header[i]
	}
	return strconv.Itoa(i + 1)
}

func (s *Session) wrap(err error) error {
	var se *engine.ScanError
	if errors.As(err, &se) {
		return &ParseError{Name: s.name, Line: se.Line, Column: se.Column, Err: se.Err}
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

const stringNameLimit = 24

// stringName builds a diagnostic name for string sources: the first line of
// the text, truncated.
func stringName(text string) string {
	s := text
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) > stringNameLimit {
		s = s[:stringNameLimit] + "..."
	}
	return fmt.Sprintf("[string %q]", s)
}
