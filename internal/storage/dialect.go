package storage

import (
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/importio/internal/core"
)

// dialect builds the statements a table target needs. Statements are
// written with ? placeholders and rebound for the driver with sqlx.Rebind.
type dialect struct {
	name     string
	bindType int
	quote    func(string) string
	top      bool // SELECT TOP 1 instead of LIMIT 1

	// tableExists and columns take (schema, table) arguments; sqlite takes
	// (table, schema) with a NULL schema searching every attached database.
	tableExists string
	columns     string
	schemaArgs  bool
}

var postgresDialect = dialect{
	name:     "postgres",
	bindType: sqlx.DOLLAR,
	quote:    doubleQuote,
	tableExists: `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_name = ?`,
	columns: `SELECT column_name FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_name = ?`,
	schemaArgs: true,
}

var sqliteDialect = dialect{
	name:        "sqlite",
	bindType:    sqlx.QUESTION,
	quote:       doubleQuote,
	tableExists: `SELECT COUNT(*) FROM pragma_table_info(?, ?)`,
	columns:     `SELECT name FROM pragma_table_info(?, ?)`,
}

var sqlserverDialect = dialect{
	name:     "sqlserver",
	bindType: sqlx.AT,
	quote:    bracketQuote,
	top:      true,
	tableExists: `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), SCHEMA_NAME()) AND TABLE_NAME = ?`,
	columns: `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), SCHEMA_NAME()) AND TABLE_NAME = ?`,
	schemaArgs: true,
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func bracketQuote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// splitTable separates an optional schema from a table name.
//
//	"public.users" -> "public", "users"
//	"users"        -> "", "users"
func splitTable(name string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	return "", strings.TrimSpace(name)
}

// quoteTable quotes each part of a possibly schema-qualified name.
func (d dialect) quoteTable(name string) string {
	schema, table := splitTable(name)
	if schema == "" {
		return d.quote(table)
	}
	return d.quote(schema) + "." + d.quote(table)
}

func (d dialect) rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

// lookupArgs returns the arguments of the tableExists and columns queries.
func (d dialect) lookupArgs(name string) []any {
	schema, table := splitTable(name)
	if d.schemaArgs {
		return []any{schema, table}
	}
	if schema == "" {
		return []any{table, nil}
	}
	return []any{table, schema}
}

func (d dialect) tableExistsQuery() string { return d.rebind(d.tableExists) }

func (d dialect) columnsQuery() string { return d.rebind(d.columns) }

// sortedColumns returns the keys of r in a stable order.
func sortedColumns(r core.Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// where renders "a = ? AND b = ?" for the key columns and appends their values.
func (d dialect) where(b *strings.Builder, key core.Row, args []any) []any {
	for i, col := range sortedColumns(key) {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(d.quote(col))
		b.WriteString(" = ?")
		args = append(args, key[col])
	}
	return args
}

// selectOne selects one row matching key.
func (d dialect) selectOne(table string, key core.Row) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if d.top {
		b.WriteString("TOP 1 ")
	}
	b.WriteString("1 FROM ")
	b.WriteString(d.quoteTable(table))
	b.WriteString(" WHERE ")
	args := d.where(&b, key, nil)
	if !d.top {
		b.WriteString(" LIMIT 1")
	}
	return d.rebind(b.String()), args
}

func (d dialect) insert(table string, row core.Row) (string, []any) {
	cols := sortedColumns(row)
	args := make([]any, 0, len(cols))

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.quoteTable(table))
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(col))
		args = append(args, row[col])
	}
	b.WriteString(") VALUES (")
	b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	b.WriteString(")")
	return d.rebind(b.String()), args
}

func (d dialect) update(table string, key, row core.Row) (string, []any) {
	cols := sortedColumns(row)
	args := make([]any, 0, len(cols)+len(key))

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(d.quoteTable(table))
	b.WriteString(" SET ")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(col))
		b.WriteString(" = ?")
		args = append(args, row[col])
	}
	b.WriteString(" WHERE ")
	args = d.where(&b, key, args)
	return d.rebind(b.String()), args
}

// columnSet caches the column names of a table.
type columnSet map[string]bool

func newColumnSet(names []string) columnSet {
	set := make(columnSet, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
