package csvstream

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlColumn mirrors one column entry in a YAML specification document:
//
//	apple:
//	  name: ALPHA
//	charlie:
//	  names: [charlie, chuck]
//	  type: int
//	  default: 0
type yamlColumn struct {
	Name    string   `yaml:"name"`
	Names   []string `yaml:"names"`
	Type    string   `yaml:"type"`
	Default any      `yaml:"default"`
}

// ColumnsFromYAML builds a column specification from a YAML document mapping
// logical names to {name, names, type, default}. The optional type field
// selects a builtin transform: "int", "float", or "string" (none).
func ColumnsFromYAML(data []byte) (Columns, error) {
	var doc map[string]yamlColumn
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("csvstream: parse column spec: %w", err)
	}
	cols := make(Columns, len(doc))
	for logical, yc := range doc {
		c := Column{Name: yc.Name, Names: yc.Names, Default: yc.Default}
		switch yc.Type {
		case "", "string":
		case "int":
			c.Transform = ParseInt
		case "float":
			c.Transform = ParseFloat
		default:
			return nil, fmt.Errorf("csvstream: column %s: unknown type %q", logical, yc.Type)
		}
		cols[logical] = c
	}
	return cols, nil
}

// ParseInt is a Transform parsing the field as a base-10 integer. Empty input
// yields nil so the column default applies.
func ParseInt(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ParseFloat is a Transform parsing the field as a decimal number. Empty
// input yields nil so the column default applies.
func ParseFloat(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}
