package csvstream

// DefaultBufferSize is the window block size used when Options.BufferSize is
// zero. Smaller sizes exercise block-boundary handling at the cost of more
// read calls.
const DefaultBufferSize = 1 << 20

// Position locates a field's first byte in the source. Line and Column are
// 1-based; Column counts bytes from the start of the current physical line.
// Positions are diagnostic metadata only and never affect field boundaries.
type Position struct {
	Line   int
	Column int
}

// Options bundles session configuration. The zero value reads comma- or
// tab-separated positional records with the default buffer size.
type Options struct {
	// Separator is the field separator byte. Zero means auto-detect: the
	// first comma or tab found in the first block is adopted for the whole
	// session. A quoted occurrence of the other candidate earlier in the
	// stream wins the detection, so ambiguous inputs should set this
	// explicitly.
	Separator byte

	// Header makes the first record the positional field names for all
	// subsequent records; the header record itself is not yielded.
	Header bool

	// Columns maps logical column names onto header text. When set, the
	// first record is consumed as the header, resolved against the column
	// specifications, and validated before any data row is yielded. Columns
	// takes precedence over Header.
	Columns Columns

	// BufferSize is the window block size in bytes; values below one fall
	// back to DefaultBufferSize. The parser's peak memory is a small
	// constant multiple of this, independent of input size.
	BufferSize int
}

func (o Options) blockSize() int {
	if o.BufferSize < 1 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

// mapped reports whether records are keyed by name rather than position.
// The mode is fixed for the whole session at configuration time.
func (o Options) mapped() bool { return len(o.Columns) > 0 || o.Header }
