package csvstream

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Transform converts a raw field value into the value stored in the record.
// Returning nil or an empty string causes the column's default to apply.
type Transform func(raw string) (any, error)

// Column specifies one logical column: which header names select it, an
// optional per-value transform, and an optional default substituted when the
// (transformed) value is empty.
//
// When neither Name nor Names is set, the logical key itself is matched, with
// underscores read as spaces.
type Column struct {
	Name      string
	Names     []string
	Transform Transform
	Default   any
}

// Columns maps logical column names to their specifications.
type Columns map[string]Column

// colSpec is the shared descriptor all of a column's aliases resolve to.
type colSpec struct {
	logical   string
	aliases   []string // normalized accepted header names, in spec order
	transform Transform
	def       any
}

// columnNameMap maps normalized header text to its descriptor. Built once per
// session; several aliases may share one descriptor.
type columnNameMap map[string]*colSpec

// columnIndexMap maps a file column index to its descriptor. Built once,
// lazily, from the header row; indices absent from it are dropped entirely,
// which lets files carry extra unmapped columns.
type columnIndexMap map[int]*colSpec

func buildColumnNameMap(cols Columns) columnNameMap {
	m := make(columnNameMap, len(cols))
	for logical, c := range cols {
		spec := &colSpec{logical: logical, transform: c.Transform, def: c.Default}
		names := c.Names
		if len(names) == 0 && c.Name != "" {
			names = []string{c.Name}
		}
		if len(names) == 0 {
			names = []string{strings.ReplaceAll(logical, "_", " ")}
		}
		for _, n := range names {
			n = normalizeHeader(n)
			spec.aliases = append(spec.aliases, n)
			m[n] = spec
		}
	}
	return m
}

func buildColumnIndexMap(header []string, names columnNameMap) (columnIndexMap, error) {
	idx := make(columnIndexMap)
	matched := make(map[*colSpec]bool)
	for i, cell := range header {
		if spec, ok := names[normalizeHeader(cell)]; ok {
			idx[i] = spec
			matched[spec] = true
		}
	}
	var missing []*colSpec
	seen := make(map[*colSpec]bool)
	for _, spec := range names {
		if !matched[spec] && !seen[spec] {
			seen[spec] = true
			missing = append(missing, spec)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i].logical < missing[j].logical })
		err := &MissingColumnsError{}
		for _, spec := range missing {
			err.Columns = append(err.Columns, spec.logical)
			err.Aliases = append(err.Aliases, spec.aliases)
		}
		return nil, err
	}
	return idx, nil
}

// transformField resolves the raw value of the field at index. ok is false
// when the index is unmapped and the field should be dropped. A transform
// failure is wrapped with the logical column name; empty results are replaced
// by the column's default.
func (m columnIndexMap) transformField(raw string, index int) (name string, value any, ok bool, err error) {
	spec, found := m[index]
	if !found {
		return "", nil, false, nil
	}
	var v any = raw
	if spec.transform != nil {
		v, err = spec.transform(raw)
		if err != nil {
			return spec.logical, nil, false, fmt.Errorf("could not read field '%s': %w", spec.logical, err)
		}
	}
	if spec.def != nil && (v == nil || v == "" || v == false) {
		v = spec.def
	}
	return spec.logical, v, true, nil
}

// normalizeHeader lowercases text and collapses runs of non-alphanumeric
// characters into single spaces, so "First-Name " and "first name" match.
func normalizeHeader(s string) string {
	b := &strings.Builder{}
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}
