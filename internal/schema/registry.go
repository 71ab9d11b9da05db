package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

type Column struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type" json:"type"`
	Collate    string `yaml:"collate,omitempty" json:"collate,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
}

type Table struct {
	Name     string   `yaml:"name" json:"name"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
	Columns  []Column `yaml:"columns" json:"columns"`
}

// Relationship is a foreign key written as qualified "table.column" references.
type Relationship struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Alias maps a phrase appearing in a question to a qualified column.
type Alias struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Column string `yaml:"column" json:"column"`
}

type document struct {
	Tables        []Table        `yaml:"tables"`
	Relationships []Relationship `yaml:"relationships"`
	Aliases       []Alias        `yaml:"aliases"`
	Cities        []string       `yaml:"cities"`
}

// Registry is immutable after Parse returns; accessors hand out copies.
type Registry struct {
	tables        []Table
	index         map[string]int
	relationships []Relationship
	aliases       []Alias
	cities        []string
	citySet       map[string]struct{}
}

var (
	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// Default returns the registry built from the embedded document. It is parsed once per process.
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Parse(defaultRegistryYAML)
		if defaultRegistryErr != nil {
			defaultRegistryErr = fmt.Errorf("parse embedded registry.yaml: %w", defaultRegistryErr)
		}
	})
	return defaultRegistry, defaultRegistryErr
}

func MustDefault() *Registry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("registry declares no tables")
	}

	reg := &Registry{
		index:   make(map[string]int, len(doc.Tables)),
		citySet: make(map[string]struct{}, len(doc.Cities)),
	}
	for _, table := range doc.Tables {
		table.Name = strings.TrimSpace(table.Name)
		if table.Name == "" {
			return nil, fmt.Errorf("table name is required")
		}
		if _, exists := reg.index[table.Name]; exists {
			return nil, fmt.Errorf("duplicate table %q", table.Name)
		}
		if len(table.Columns) == 0 {
			return nil, fmt.Errorf("table %q declares no columns", table.Name)
		}
		seen := make(map[string]struct{}, len(table.Columns))
		for _, column := range table.Columns {
			if strings.TrimSpace(column.Name) == "" || strings.TrimSpace(column.Type) == "" {
				return nil, fmt.Errorf("table %q has a column without name or type", table.Name)
			}
			if _, dup := seen[column.Name]; dup {
				return nil, fmt.Errorf("table %q has duplicate column %q", table.Name, column.Name)
			}
			seen[column.Name] = struct{}{}
		}
		synonyms := make([]string, 0, len(table.Synonyms))
		for _, synonym := range table.Synonyms {
			synonym = strings.ToLower(strings.TrimSpace(synonym))
			if synonym != "" {
				synonyms = append(synonyms, synonym)
			}
		}
		table.Synonyms = synonyms
		reg.index[table.Name] = len(reg.tables)
		reg.tables = append(reg.tables, table)
	}

	for _, rel := range doc.Relationships {
		if !reg.HasColumn(rel.From) || !reg.HasColumn(rel.To) {
			return nil, fmt.Errorf("relationship %s -> %s references an unknown column", rel.From, rel.To)
		}
		reg.relationships = append(reg.relationships, rel)
	}
	for _, alias := range doc.Aliases {
		alias.Phrase = strings.ToLower(strings.TrimSpace(alias.Phrase))
		if alias.Phrase == "" {
			return nil, fmt.Errorf("alias for %q has an empty phrase", alias.Column)
		}
		if !reg.HasColumn(alias.Column) {
			return nil, fmt.Errorf("alias %q references unknown column %q", alias.Phrase, alias.Column)
		}
		reg.aliases = append(reg.aliases, alias)
	}
	for _, city := range doc.Cities {
		city = strings.ToLower(strings.TrimSpace(city))
		if city == "" {
			continue
		}
		if _, dup := reg.citySet[city]; dup {
			continue
		}
		reg.citySet[city] = struct{}{}
		reg.cities = append(reg.cities, city)
	}
	return reg, nil
}

// Tables returns the tables in priority order.
func (r *Registry) Tables() []Table {
	out := make([]Table, len(r.tables))
	for i, table := range r.tables {
		out[i] = cloneTable(table)
	}
	return out
}

func (r *Registry) TableNames() []string {
	names := make([]string, len(r.tables))
	for i, table := range r.tables {
		names[i] = table.Name
	}
	return names
}

func (r *Registry) Table(name string) (Table, bool) {
	idx, ok := r.index[name]
	if !ok {
		return Table{}, false
	}
	return cloneTable(r.tables[idx]), true
}

// HasColumn reports whether a qualified "table.column" reference exists.
func (r *Registry) HasColumn(qualified string) bool {
	tableName, columnName, ok := SplitQualified(qualified)
	if !ok {
		return false
	}
	idx, ok := r.index[tableName]
	if !ok {
		return false
	}
	for _, column := range r.tables[idx].Columns {
		if column.Name == columnName {
			return true
		}
	}
	return false
}

func (r *Registry) Aliases() []Alias {
	return append([]Alias(nil), r.aliases...)
}

func (r *Registry) Relationships() []Relationship {
	return append([]Relationship(nil), r.relationships...)
}

func (r *Registry) Cities() []string {
	return append([]string(nil), r.cities...)
}

func (r *Registry) IsKnownCity(value string) bool {
	_, ok := r.citySet[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// JoinClause renders "LEFT JOIN joined ON existing.x = joined.y" from the foreign key linking the
// two tables, with the already-present table on the left of the equality.
func (r *Registry) JoinClause(existing, joined string) (string, error) {
	for _, rel := range r.relationships {
		fromTable, fromColumn, _ := SplitQualified(rel.From)
		toTable, toColumn, _ := SplitQualified(rel.To)
		switch {
		case fromTable == existing && toTable == joined:
			return fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s", joined, existing, fromColumn, joined, toColumn), nil
		case toTable == existing && fromTable == joined:
			return fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s", joined, existing, toColumn, joined, fromColumn), nil
		}
	}
	return "", fmt.Errorf("no relationship between %s and %s", existing, joined)
}

// CreateTableDDL renders the DuckDB CREATE TABLE statement used to bootstrap a table.
func (r *Registry) CreateTableDDL(name string) (string, error) {
	table, ok := r.Table(name)
	if !ok {
		return "", fmt.Errorf("unknown table %q", name)
	}
	defs := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		def := column.Name + " " + column.Type
		if column.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if column.Collate != "" {
			def += " COLLATE " + column.Collate
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table.Name, strings.Join(defs, ", ")), nil
}

func SplitQualified(ref string) (string, string, bool) {
	tableName, columnName, ok := strings.Cut(strings.TrimSpace(ref), ".")
	if !ok || tableName == "" || columnName == "" {
		return "", "", false
	}
	return tableName, columnName, true
}

func cloneTable(table Table) Table {
	table.Synonyms = append([]string(nil), table.Synonyms...)
	table.Columns = append([]Column(nil), table.Columns...)
	return table
}
