// Package codes holds the HIRA region, department and class code tables used
// to build list filters. A default set is embedded; a YAML file with the same
// shape can replace it.
package codes

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table names
const (
	Sido   = "sido"
	Sggu   = "sggu"
	Dgsbjt = "dgsbjt"
	Cl     = "cl"
)

//go:embed codes.yaml
var defaultData []byte

// Entry is one name/code pair
type Entry struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Table is an ordered list of entries
type Table struct {
	Description string  `yaml:"description"`
	Entries     []Entry `yaml:"entries"`
}

// Set is a collection of named tables
type Set struct {
	tables map[string]*Table
}

// Default returns the embedded code tables
func Default() *Set {
	set, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("embedded code tables are invalid: %v", err))
	}
	return set
}

// Load reads code tables from path, or returns the embedded set when path is empty
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read code tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML code tables
func Parse(data []byte) (*Set, error) {
	tables := make(map[string]*Table)
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse code tables: %w", err)
	}
	for name, table := range tables {
		if table == nil {
			return nil, fmt.Errorf("code table %q is empty", name)
		}
		for i, e := range table.Entries {
			if e.Name == "" || e.Code == "" {
				return nil, fmt.Errorf("code table %q entry %d needs both name and code", name, i)
			}
		}
	}
	return &Set{tables: tables}, nil
}

// Names returns the table names in sorted order
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the named table
func (s *Set) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Resolve maps a display name or a raw code to the code the API expects.
// An empty value resolves to "" so unset filters stay unset.
func (s *Set) Resolve(table, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	t, ok := s.tables[table]
	if !ok {
		return "", fmt.Errorf("unknown code table: %s", table)
	}
	for _, e := range t.Entries {
		if e.Name == value || e.Code == value {
			return e.Code, nil
		}
	}
	return "", fmt.Errorf("%q is not a known %s name or code", value, table)
}

// Name returns the display name for a code, or "" when unknown
func (s *Set) Name(table, code string) string {
	t, ok := s.tables[table]
	if !ok {
		return ""
	}
	for _, e := range t.Entries {
		if e.Code == code {
			return e.Name
		}
	}
	return ""
}
