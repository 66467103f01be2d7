// Package mysql provides MySQL dialect support: DDL rendering of migration
// plans, rollback statements, and statement analysis with the TiDB parser.
package mysql

import (
	"fmt"
	"hash/fnv"
	"strings"

	"backforge/internal/dialect"
)

const mysqlMaxIdentLen = 64

func init() {
	dialect.RegisterDialect(dialect.MySQL, func() dialect.Dialect {
		return NewMySQLDialect()
	})
}

// Dialect represents the MySQL dialect struct, with DDL generator and
// statement analyzer.
type Dialect struct {
	generator *Generator
	analyzer  *StatementAnalyzer
}

// NewMySQLDialect initializes a new MySQL dialect instance.
func NewMySQLDialect() *Dialect {
	return &Dialect{
		generator: NewMySQLGenerator(),
		analyzer:  NewStatementAnalyzer(),
	}
}

// Name returns the name of the MySQL dialect.
func (d *Dialect) Name() dialect.Type {
	return dialect.MySQL
}

// Generator returns the DDL generator for the MySQL dialect.
func (d *Dialect) Generator() dialect.Generator {
	return d.generator
}

// Analyzer returns the statement analyzer for the MySQL dialect.
func (d *Dialect) Analyzer() dialect.Analyzer {
	return d.analyzer
}

// Generator is a stateless struct for generating MySQL DDL.
type Generator struct{}

// NewMySQLGenerator initializes a new MySQL DDL generator instance.
func NewMySQLGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier is a function used for quote identification inside an SQL dialect.
func (g *Generator) QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// QuoteString is a function used for quote string inside an SQL dialect.
func (g *Generator) QuoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)

	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1A': // Ctrl+Z
			b.WriteString(`\Z`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// keyName builds an index or constraint name such as "uq_users_email". Names
// longer than MySQL's identifier limit are truncated and suffixed with an
// FNV-1a hash of the full name so they stay unique.
func keyName(prefix, table, field string) string {
	full := prefix + "_" + table + "_" + field
	if len(full) <= mysqlMaxIdentLen {
		return full
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(full))
	suffix := fmt.Sprintf("_%016x", h.Sum64())

	maxBase := max(mysqlMaxIdentLen-len(suffix), 0)
	return full[:maxBase] + suffix
}

func uniqueKeyName(table, field string) string { return keyName("uq", table, field) }
func indexName(table, field string) string     { return keyName("idx", table, field) }
func foreignKeyName(table, field string) string {
	return keyName("fk", table, field)
}
