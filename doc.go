package csvstream

// Package csvstream provides:
//
// - Streaming, bounded-memory parsing of comma/tab/other-delimited text
// - Quoted-field grammar: embedded separators, newlines, and "" escapes
// - Mixed line-ending normalization (LF, CR, CR LF)
// - Header and logical-column mapping with per-column transforms and defaults
// - Positioned diagnostics ("<name>:<line>:<column>: <message>")
//
// Design policy:
// - Keep only public APIs in the root package; put the buffering/scanning
//   core under internal/engine.
// - Place the CLI under cmd/csvstream.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s, err := csvstream.Open("stock.csv", csvstream.Options{Header: true})
//	defer s.Close()
//	for rec, err := range s.All() {
//		...
//	}
