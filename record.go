package csvstream

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// Record is one logical row together with the origin of each field. The
// record shape is fixed for the whole session at configuration time:
// positional sessions populate Fields and FieldPos; sessions with a header or
// column mapping populate Values and ValuePos.
type Record struct {
	// Fields holds the field values in file order (positional mode).
	Fields []string
	// FieldPos parallels Fields with each field's source position.
	FieldPos []Position

	// Values maps the logical or header-derived name to the field's value
	// (mapped mode). Later fields deriving the same key overwrite earlier
	// ones.
	Values map[string]any
	// ValuePos parallels Values with each field's source position.
	ValuePos map[string]Position
}

// Pos returns the source position of the named field, or of the 1-based
// index rendered in decimal for positional records.
func (r *Record) Pos(key string) (Position, bool) {
	if r.Values != nil {
		p, ok := r.ValuePos[key]
		return p, ok
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 1 && i <= len(r.FieldPos) {
		return r.FieldPos[i-1], true
	}
	return Position{}, false
}

// MarshalJSON renders positional records as arrays and mapped records as
// objects.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r.Values != nil {
		return json.Marshal(r.Values)
	}
	return json.Marshal(r.Fields)
}
