// Package schema describes the GoodJobs relational tables as plain data.
//
// The description is declared once in Ledger and rendered to DDL for the
// supported dialects. Nothing is registered at runtime.
package schema

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour a statement is rendered for.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ColumnType is a portable column type.
type ColumnType int

const (
	TypeID ColumnType = iota
	TypeInteger
	TypeText
	TypeBoolean
	TypeTimestamp
)

// ForeignKey references another table's primary key.
type ForeignKey struct {
	Table  string
	Column string
}

// Column describes one table column.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	Default    string
	References *ForeignKey
}

// Index is a secondary, non-unique index.
type Index struct {
	Name    string
	Columns []string
}

// Table describes one table and its indexes.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Schema is an ordered set of tables; referenced tables come first.
type Schema struct {
	Tables []Table
}

// Table names.
const (
	UsersTable     = "users"
	GoodJobsTable  = "good_jobs"
	TransfersTable = "transfers"
)

// Ledger is the complete GoodJobs schema.
var Ledger = &Schema{
	Tables: []Table{
		{
			Name: UsersTable,
			Columns: []Column{
				{Name: "id", Type: TypeID, PrimaryKey: true},
				{Name: "name", Type: TypeText, Unique: true},
				{Name: "hash", Type: TypeText},
				{Name: "is_admin", Type: TypeBoolean, Default: "false"},
				{Name: "created_at", Type: TypeTimestamp},
			},
		},
		{
			Name: GoodJobsTable,
			Columns: []Column{
				{Name: "id", Type: TypeID, PrimaryKey: true},
				{Name: "generated_date", Type: TypeTimestamp},
				{Name: "current_owner_id", Type: TypeInteger, Nullable: true, References: &ForeignKey{Table: UsersTable, Column: "id"}},
				{Name: "last_transfer_date", Type: TypeTimestamp, Nullable: true},
			},
			Indexes: []Index{
				{Name: "idx_good_jobs_current_owner", Columns: []string{"current_owner_id"}},
			},
		},
		{
			Name: TransfersTable,
			Columns: []Column{
				{Name: "id", Type: TypeID, PrimaryKey: true},
				{Name: "date", Type: TypeTimestamp},
				{Name: "from_user_id", Type: TypeInteger, References: &ForeignKey{Table: UsersTable, Column: "id"}},
				{Name: "to_user_id", Type: TypeInteger, References: &ForeignKey{Table: UsersTable, Column: "id"}},
				{Name: "good_job_id", Type: TypeInteger, References: &ForeignKey{Table: GoodJobsTable, Column: "id"}},
				{Name: "balance_after_from", Type: TypeInteger},
				{Name: "balance_after_to", Type: TypeInteger},
			},
			Indexes: []Index{
				{Name: "idx_transfers_good_job", Columns: []string{"good_job_id"}},
				{Name: "idx_transfers_to_user", Columns: []string{"to_user_id"}},
				{Name: "idx_transfers_from_user", Columns: []string{"from_user_id"}},
			},
		},
	},
}

// Lookup returns the named table.
func (s *Schema) Lookup(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Validate checks that every foreign key points at a table declared earlier
// and that every index names existing columns.
func (s *Schema) Validate() error {
	seen := make(map[string]Table, len(s.Tables))
	for _, t := range s.Tables {
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("schema: duplicate table %q", t.Name)
		}
		cols := make(map[string]bool, len(t.Columns))
		pk := 0
		for _, c := range t.Columns {
			cols[c.Name] = true
			if c.PrimaryKey {
				pk++
			}
			if c.References == nil {
				continue
			}
			ref, ok := seen[c.References.Table]
			if !ok && c.References.Table != t.Name {
				return fmt.Errorf("schema: %s.%s references undeclared table %q", t.Name, c.Name, c.References.Table)
			}
			if ok && !hasColumn(ref, c.References.Column) {
				return fmt.Errorf("schema: %s.%s references unknown column %s.%s", t.Name, c.Name, ref.Name, c.References.Column)
			}
		}
		if pk != 1 {
			return fmt.Errorf("schema: table %q must have exactly one primary key", t.Name)
		}
		for _, idx := range t.Indexes {
			for _, col := range idx.Columns {
				if !cols[col] {
					return fmt.Errorf("schema: index %s uses unknown column %s.%s", idx.Name, t.Name, col)
				}
			}
		}
		seen[t.Name] = t
	}
	return nil
}

// Statements renders CREATE TABLE and CREATE INDEX statements for d in
// dependency order. All statements are idempotent.
func (s *Schema) Statements(d Dialect) ([]string, error) {
	if d != Postgres && d != SQLite {
		return nil, fmt.Errorf("schema: unsupported dialect %q", d)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var stmts []string
	for _, t := range s.Tables {
		stmts = append(stmts, createTable(t, d))
	}
	for _, t := range s.Tables {
		for _, idx := range t.Indexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				idx.Name, t.Name, strings.Join(idx.Columns, ", ")))
		}
	}
	return stmts, nil
}

func createTable(t Table, d Dialect) string {
	defs := make([]string, 0, len(t.Columns))
	var fks []string
	for _, c := range t.Columns {
		defs = append(defs, columnDef(c, d))
		if c.References != nil {
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", c.Name, c.References.Table, c.References.Column))
		}
	}
	defs = append(defs, fks...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t"))
}

func columnDef(c Column, d Dialect) string {
	if c.PrimaryKey && c.Type == TypeID {
		if d == Postgres {
			return c.Name + " BIGSERIAL PRIMARY KEY"
		}
		return c.Name + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(sqlType(c.Type, d))
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

func sqlType(t ColumnType, d Dialect) string {
	switch t {
	case TypeID, TypeInteger:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeTimestamp:
		if d == Postgres {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func hasColumn(t Table, name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
