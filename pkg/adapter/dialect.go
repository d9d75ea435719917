package adapter

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL differences the base adapter needs to know about.
type Dialect struct {
	Name string
	// NumberedPlaceholders selects $1, $2... instead of ?.
	NumberedPlaceholders bool
	// Column type names used when creating tables.
	IntegerType string
	RealType    string
	BoolType    string
	TextType    string
}

// Dialects of the bundled adapters.
var (
	DuckDBDialect = &Dialect{
		Name:        "duckdb",
		IntegerType: "BIGINT",
		RealType:    "DOUBLE",
		BoolType:    "BOOLEAN",
		TextType:    "VARCHAR",
	}
	SQLiteDialect = &Dialect{
		Name:        "sqlite",
		IntegerType: "INTEGER",
		RealType:    "REAL",
		BoolType:    "INTEGER",
		TextType:    "TEXT",
	}
	PostgresDialect = &Dialect{
		Name:                 "postgres",
		NumberedPlaceholders: true,
		IntegerType:          "BIGINT",
		RealType:             "DOUBLE PRECISION",
		BoolType:             "BOOLEAN",
		TextType:             "TEXT",
	}
)

// FormatPlaceholder returns the bind placeholder for the 1-based index i.
func (d *Dialect) FormatPlaceholder(i int) string {
	if d.NumberedPlaceholders {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// QuoteIdent quotes an identifier with double quotes, which all bundled
// dialects accept.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes a possibly schema-qualified table name.
func QuoteQualified(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return QuoteIdent(parts[0]) + "." + QuoteIdent(parts[1])
	}
	return QuoteIdent(table)
}

// ColumnType picks a column type for values. nil values are ignored; a
// column of only nils is text.
func (d *Dialect) ColumnType(values []any) string {
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case nil:
			continue
		case int64, int, int32:
			k = "int"
		case float64, float32:
			k = "real"
		case bool:
			k = "bool"
		default:
			return d.TextType
		}
		switch {
		case kind == "":
			kind = k
		case kind == k:
		case (kind == "int" && k == "real") || (kind == "real" && k == "int"):
			kind = "real"
		default:
			return d.TextType
		}
	}
	switch kind {
	case "int":
		return d.IntegerType
	case "real":
		return d.RealType
	case "bool":
		return d.BoolType
	default:
		return d.TextType
	}
}
