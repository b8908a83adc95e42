package csvstream_test

import (
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/reoring/csvstream"
)

func drain(t *testing.T, s *csvstream.Session) []*csvstream.Record {
	t.Helper()
	defer s.Close()
	var recs []*csvstream.Record
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			return recs
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		recs = append(recs, rec)
	}
}

func TestSimpleRow(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a,b,c\n", csvstream.Options{}))
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if !reflect.DeepEqual(recs[0].Fields, []string{"a", "b", "c"}) {
		t.Fatalf("fields = %v", recs[0].Fields)
	}
	wantPos := []csvstream.Position{
		{Line: 1, Column: 1},
		{Line: 1, Column: 3},
		{Line: 1, Column: 5},
	}
	if !reflect.DeepEqual(recs[0].FieldPos, wantPos) {
		t.Fatalf("positions = %v", recs[0].FieldPos)
	}
}

func TestEmbeddedNewlines(t *testing.T) {
	recs := drain(t, csvstream.OpenString("\"line1\nline2\",x\nnext\n", csvstream.Options{}))
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Fields[0] != "line1\nline2" {
		t.Fatalf("field = %q", recs[0].Fields[0])
	}
	// the quoted field spans two physical lines, so the sibling field and
	// the next record are positioned after the embedded newline
	if recs[0].FieldPos[1].Line != 2 {
		t.Fatalf("sibling field line = %d, want 2", recs[0].FieldPos[1].Line)
	}
	if recs[1].FieldPos[0] != (csvstream.Position{Line: 3, Column: 1}) {
		t.Fatalf("next record position = %v", recs[1].FieldPos[0])
	}
}

func TestEmbeddedQuotes(t *testing.T) {
	recs := drain(t, csvstream.OpenString(`"a ""quoted"" word"`, csvstream.Options{}))
	if len(recs) != 1 || recs[0].Fields[0] != `a "quoted" word` {
		t.Fatalf("records = %+v", recs)
	}
}

func TestBlankLineSuppression(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a,b\n\n\nc,d\n\n", csvstream.Options{}))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want blank lines dropped", len(recs))
	}
	// an empty first field next to a separator is not a blank line
	recs = drain(t, csvstream.OpenString(",x\n", csvstream.Options{}))
	if len(recs) != 1 || !reflect.DeepEqual(recs[0].Fields, []string{"", "x"}) {
		t.Fatalf("records = %+v", recs)
	}
}

func TestHeaderMode(t *testing.T) {
	recs := drain(t, csvstream.OpenString("name,qty\napple,3\nbanana,12\n", csvstream.Options{Header: true}))
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Values["name"] != "apple" || recs[0].Values["qty"] != "3" {
		t.Fatalf("record = %v", recs[0].Values)
	}
	if recs[1].ValuePos["qty"] != (csvstream.Position{Line: 3, Column: 8}) {
		t.Fatalf("qty position = %v", recs[1].ValuePos["qty"])
	}
}

func TestHeaderModeDuplicateNames(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a,a\n1,2\n", csvstream.Options{Header: true}))
	if len(recs) != 1 || recs[0].Values["a"] != "2" {
		t.Fatalf("last write should win: %v", recs[0].Values)
	}
}

func TestHeaderModeWideRow(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a\n1,2\n", csvstream.Options{Header: true}))
	if recs[0].Values["a"] != "1" || recs[0].Values["2"] != "2" {
		t.Fatalf("wide row keys = %v", recs[0].Values)
	}
}

func timesTen(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return n * 10, nil
}

func TestColumnMapping(t *testing.T) {
	opt := csvstream.Options{Columns: csvstream.Columns{
		"apple":   {Name: "ALPHA"},
		"charlie": {Transform: timesTen, Default: 0},
	}}
	recs := drain(t, csvstream.OpenString("ALPHA,bravo,charlie\none,x,3\n", opt))
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	want := map[string]any{"apple": "one", "charlie": 30}
	if !reflect.DeepEqual(recs[0].Values, want) {
		t.Fatalf("record = %v, want %v (bravo dropped)", recs[0].Values, want)
	}
}

func TestColumnDefaultApplied(t *testing.T) {
	opt := csvstream.Options{Columns: csvstream.Columns{
		"charlie": {Transform: timesTen, Default: 0},
	}}
	recs := drain(t, csvstream.OpenString("charlie\n\n5\n,\n", opt))
	// row 3 is ",": two empty fields, first maps to charlie -> default
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Values["charlie"] != 50 || recs[1].Values["charlie"] != 0 {
		t.Fatalf("records = %v, %v", recs[0].Values, recs[1].Values)
	}
}

func TestMissingColumns(t *testing.T) {
	opt := csvstream.Options{Columns: csvstream.Columns{
		"apple":   {Name: "ALPHA"},
		"charlie": {Names: []string{"chuck", "charles"}},
	}}
	s := csvstream.NewSession(strings.NewReader("alpha,bravo\none,two\n"), "stock.csv", opt)
	defer s.Close()
	_, err := s.Next()
	if err == nil {
		t.Fatalf("expected a missing-column failure before any data row")
	}
	var mc *csvstream.MissingColumnsError
	if !errors.As(err, &mc) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
	if !reflect.DeepEqual(mc.Columns, []string{"charlie"}) {
		t.Fatalf("missing columns = %v", mc.Columns)
	}
	want := "stock.csv:1:1: no column found for 'chuck' or 'charles'"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestMixedLineEndings(t *testing.T) {
	mixed := drain(t, csvstream.OpenString("a,b\r\nc,d\ne,f\r\n", csvstream.Options{}))
	plain := drain(t, csvstream.OpenString("a,b\nc,d\ne,f\n", csvstream.Options{}))
	if !reflect.DeepEqual(mixed, plain) {
		t.Fatalf("mixed = %+v, plain = %+v", mixed, plain)
	}
}

// Chunk-size independence is the primary regression property: every fixture
// must parse identically for every buffer size from 1 up to the input length.
func TestChunkSizeIndependence(t *testing.T) {
	fixtures := []struct {
		name  string
		input string
		opt   csvstream.Options
	}{
		{"simple", "a,b,c\nd,e,f\n", csvstream.Options{}},
		{"quoted", "\"a,\"\"b\"\"\nc\",d\r\ne,\"f\"\n", csvstream.Options{}},
		{"blank lines", "\n\na,b\n\nc\n", csvstream.Options{}},
		{"tabs", "a\tb\nc\td", csvstream.Options{}},
		{"no trailing newline", "a,b\nc,d", csvstream.Options{}},
		{"header", "h1,h2\n1,2\n3,4\n", csvstream.Options{Header: true}},
		{"columns", "ALPHA,bravo,charlie\none,x,3\n", csvstream.Options{Columns: csvstream.Columns{
			"apple":   {Name: "ALPHA"},
			"charlie": {Transform: timesTen, Default: 0},
		}}},
	}
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			opt := fx.opt
			opt.BufferSize = len(fx.input)
			want := drain(t, csvstream.OpenString(fx.input, opt))
			for size := 1; size <= 16; size++ {
				opt.BufferSize = size
				got := drain(t, csvstream.OpenString(fx.input, opt))
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("size %d: got %+v, want %+v", size, got, want)
				}
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	const input = "a,b\nc,d\n"
	first := drain(t, csvstream.OpenString(input, csvstream.Options{}))
	second := drain(t, csvstream.OpenString(input, csvstream.Options{}))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reruns differ: %+v vs %+v", first, second)
	}
}

func TestUnmatchedQuote(t *testing.T) {
	s := csvstream.NewSession(strings.NewReader("x,\"abc"), "test.csv", csvstream.Options{})
	defer s.Close()
	_, err := s.Next()
	if !errors.Is(err, csvstream.ErrUnmatchedQuote) {
		t.Fatalf("err = %v, want ErrUnmatchedQuote", err)
	}
	if got, want := err.Error(), "test.csv:1:3: unmatched quote"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	// fatal errors stick: the session must not resume
	if _, again := s.Next(); again != err {
		t.Fatalf("second Next = %v, want the same error", again)
	}
}

func TestRecordsBeforeErrorRemainValid(t *testing.T) {
	s := csvstream.NewSession(strings.NewReader("a,b\n\"bad"), "test.csv", csvstream.Options{})
	defer s.Close()
	rec, err := s.Next()
	if err != nil || !reflect.DeepEqual(rec.Fields, []string{"a", "b"}) {
		t.Fatalf("first record = %+v, %v", rec, err)
	}
	if _, err := s.Next(); !errors.Is(err, csvstream.ErrUnmatchedQuote) {
		t.Fatalf("err = %v", err)
	}
}

func TestTransformFailure(t *testing.T) {
	opt := csvstream.Options{Columns: csvstream.Columns{
		"num": {Transform: timesTen},
	}}
	s := csvstream.NewSession(strings.NewReader("num\nabc\n"), "test.csv", opt)
	defer s.Close()
	_, err := s.Next()
	if err == nil {
		t.Fatalf("expected a transform failure")
	}
	var pe *csvstream.ParseError
	if !errors.As(err, &pe) || pe.Line != 2 || pe.Column != 1 {
		t.Fatalf("err = %v, want position 2:1", err)
	}
	if !strings.Contains(err.Error(), "could not read field 'num':") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := csvstream.Open("testdata/no-such-file.csv", csvstream.Options{}); err == nil {
		t.Fatalf("expected an open failure")
	}
}

func TestOpenFile(t *testing.T) {
	s, err := csvstream.Open("testdata/fruit.csv", csvstream.Options{Header: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Name() != "testdata/fruit.csv" {
		t.Fatalf("Name = %q", s.Name())
	}
	recs := drain(t, s)
	if len(recs) != 2 || recs[0].Values["name"] != "apple" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestOpenStringName(t *testing.T) {
	s := csvstream.OpenString("abcdefghijklmnopqrstuvwxyz,1\nrow2\n", csvstream.Options{})
	defer s.Close()
	name := s.Name()
	if !strings.HasPrefix(name, `[string "abcdefghijklmnopqrstuvwx`) || !strings.Contains(name, "...") {
		t.Fatalf("Name = %q, want a truncated preview", name)
	}
}

func TestAllIterator(t *testing.T) {
	s := csvstream.OpenString("a,b\nc,d\n", csvstream.Options{})
	defer s.Close()
	var got [][]string
	for rec, err := range s.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		got = append(got, rec.Fields)
	}
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %v", got)
	}
}

func TestAllIteratorYieldsError(t *testing.T) {
	s := csvstream.OpenString("a,b\n\"bad", csvstream.Options{})
	defer s.Close()
	var fail error
	var n int
	for rec, err := range s.All() {
		if err != nil {
			fail = err
			continue
		}
		_ = rec
		n++
	}
	if n != 1 || !errors.Is(fail, csvstream.ErrUnmatchedQuote) {
		t.Fatalf("n = %d, err = %v", n, fail)
	}
}

func TestExplicitSeparator(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a;b,c\nd;e\n", csvstream.Options{Separator: ';'}))
	if !reflect.DeepEqual(recs[0].Fields, []string{"a", "b,c"}) {
		t.Fatalf("fields = %v", recs[0].Fields)
	}
}

func TestRecordPos(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a,b\n", csvstream.Options{}))
	if p, ok := recs[0].Pos("2"); !ok || p != (csvstream.Position{Line: 1, Column: 3}) {
		t.Fatalf("Pos(2) = %v, %v", p, ok)
	}
	recs = drain(t, csvstream.OpenString("h\nv\n", csvstream.Options{Header: true}))
	if p, ok := recs[0].Pos("h"); !ok || p.Line != 2 {
		t.Fatalf("Pos(h) = %v, %v", p, ok)
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	recs := drain(t, csvstream.OpenString("a,b\n", csvstream.Options{}))
	data, err := recs[0].MarshalJSON()
	if err != nil || string(data) != `["a","b"]` {
		t.Fatalf("positional JSON = %s, %v", data, err)
	}
	recs = drain(t, csvstream.OpenString("k\nv\n", csvstream.Options{Header: true}))
	data, err = recs[0].MarshalJSON()
	if err != nil || string(data) != `{"k":"v"}` {
		t.Fatalf("mapped JSON = %s, %v", data, err)
	}
}

func BenchmarkNext(b *testing.B) {
	input := strings.Repeat("alpha,bravo,\"char,lie\",1234\n", 1000)
	b.SetBytes(int64(len(input)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s := csvstream.OpenString(input, csvstream.Options{})
		for {
			_, err := s.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
		s.Close()
	}
}
