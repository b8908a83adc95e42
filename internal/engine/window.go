package engine

import (
	"bytes"
	"io"
)

// DefaultBlockSize is the read granularity used when no block size is given.
const DefaultBlockSize = 1 << 20

// Window is a bounded, forward-only view over a byte source. It accumulates
// blocks lazily as offsets beyond the buffered region are requested, and
// discards data behind the parse position on Truncate so peak memory stays
// proportional to the block size rather than the input size.
//
// All offsets are absolute byte positions in the source, zero-based. Once an
// offset falls behind a Truncate point it is permanently unreadable; callers
// must not retain offsets they need past a Truncate.
type Window struct {
	src    io.Reader
	block  int
	buf    []byte
	base   int64 // absolute offset of buf[0]; only ever increases
	eof    bool
	err    error
	closed bool
}

// NewWindow wraps src with the given block size. Sizes below one fall back to
// DefaultBlockSize.
func NewWindow(src io.Reader, block int) *Window {
	if block < 1 {
		block = DefaultBlockSize
	}
	return &Window{src: src, block: block}
}

// Base returns the lowest offset that can still be dereferenced.
func (w *Window) Base() int64 { return w.base }

// End returns the offset one past the last buffered byte.
func (w *Window) End() int64 { return w.base + int64(len(w.buf)) }

// Err returns the first non-EOF read error encountered, if any.
func (w *Window) Err() error { return w.err }

// extend pulls at least one more byte from the source, reporting false once
// the source is exhausted or failed.
func (w *Window) extend() bool {
	if w.eof {
		return false
	}
	have := len(w.buf)
	if cap(w.buf)-have < w.block {
		grown := make([]byte, have, have+w.block)
		copy(grown, w.buf)
		w.buf = grown
	}
	for {
		n, err := w.src.Read(w.buf[have : have+w.block])
		if n > 0 {
			w.buf = w.buf[:have+n]
		}
		if err != nil {
			if err != io.EOF {
				w.err = err
			}
			w.eof = true
			return n > 0
		}
		if n > 0 {
			return true
		}
	}
}

// ensure extends the window until off is buffered, reporting false if the
// source ends first.
func (w *Window) ensure(off int64) bool {
	for off >= w.End() {
		if !w.extend() {
			return false
		}
	}
	return true
}

// ByteAt returns the byte at the absolute offset off, pulling more blocks as
// needed. The second result is false only when the source ends before off.
// Probing one past the buffered tail is how multi-byte lookahead ("" pairs,
// CR LF) avoids false negatives at block boundaries.
func (w *Window) ByteAt(off int64) (byte, bool) {
	if !w.ensure(off) {
		return 0, false
	}
	return w.buf[off-w.base], true
}

// IndexAny scans forward from the absolute offset from for the first
// occurrence of any byte in set, extending the window until a match is found
// or the source is exhausted. On failure it returns the end-of-data offset.
func (w *Window) IndexAny(from int64, set []byte) (int64, byte, bool) {
	off := from
	for {
		if off >= w.End() && !w.extend() {
			return w.End(), 0, false
		}
		avail := w.buf[off-w.base:]
		best := -1
		var hit byte
		for _, c := range set {
			if i := bytes.IndexByte(avail, c); i >= 0 && (best < 0 || i < best) {
				best, hit = i, c
			}
		}
		if best >= 0 {
			return off + int64(best), hit, true
		}
		off = w.End()
	}
}

// Slice returns the bytes in the half-open absolute range [a, b), extending
// the window when b lies beyond what is buffered. The range is clamped to the
// available data.
func (w *Window) Slice(a, b int64) string {
	if b > w.End() {
		w.ensure(b - 1)
	}
	if b > w.End() {
		b = w.End()
	}
	if a < w.base {
		a = w.base
	}
	if a >= b {
		return ""
	}
	return string(w.buf[a-w.base : b-w.base])
}

// SliceToEnd returns everything buffered from a onward without forcing a
// read.
func (w *Window) SliceToEnd(a int64) string {
	if a < w.base {
		a = w.base
	}
	if a >= w.End() {
		return ""
	}
	return string(w.buf[a-w.base:])
}

// Truncate discards buffered bytes before the block boundary at or below p,
// rebasing the window. Callers invoke it once per consumed field to keep the
// resident buffer bounded.
func (w *Window) Truncate(p int64) {
	p -= p % int64(w.block)
	if p <= w.base {
		return
	}
	if end := w.End(); p > end {
		p = end
	}
	n := p - w.base
	w.buf = append(w.buf[:0], w.buf[n:]...)
	w.base = p
}

// Close releases the underlying source when it is a Closer. It is safe to
// call more than once.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if c, ok := w.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
