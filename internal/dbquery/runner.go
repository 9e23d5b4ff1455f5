// Package dbquery runs read-only SQL against the employees database on
// behalf of the query_database tool.
package dbquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultSchema is the Postgres schema the employees tables live in.
const DefaultSchema = "employees"

// Runner executes SELECT statements and describes the schema for
// remediation hints.
type Runner interface {
	Query(ctx context.Context, sql string) (*ResultSet, error)
	// DescribeSchema never fails: a lookup error is rendered into the text.
	DescribeSchema(ctx context.Context) string
	Tables(ctx context.Context) ([]TableColumns, error)
	Ping(ctx context.Context) error
}

// ResultSet is a fully materialised query result.
type ResultSet struct {
	Columns []string
	Records [][]any
}

// ColumnNames returns the column names, never nil.
func (rs *ResultSet) ColumnNames() []string {
	if rs.Columns == nil {
		return []string{}
	}
	return rs.Columns
}

// Stringify renders the rows as a JSON array of objects whose keys follow
// column order.
func (rs *ResultSet) Stringify() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range rs.Records {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('{')
		for j, col := range rs.Columns {
			if j > 0 {
				buf.WriteString(", ")
			}
			key, _ := json.Marshal(col)
			buf.Write(key)
			buf.WriteString(": ")
			var v any
			if j < len(rec) {
				v = rec[j]
			}
			buf.Write(encodeValue(v))
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String()
}

func encodeValue(v any) []byte {
	switch t := v.(type) {
	case []byte:
		v = string(t)
	case [16]byte:
		v = formatUUID(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(v))
	}
	return data
}

func formatUUID(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// IsSelect reports whether sql begins with the SELECT keyword once leading
// whitespace is trimmed. The comparison is case-insensitive.
func IsSelect(sql string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select")
}

// FormatSchema renders table/column listings in the layout the model is
// shown alongside query errors.
func FormatSchema(tables []TableColumns) string {
	var sb strings.Builder
	sb.WriteString("Database Schema:\n")
	for _, t := range tables {
		sb.WriteString("\n" + t.Table + "\n")
		for _, c := range t.Columns {
			sb.WriteString("  - " + c + "\n")
		}
	}
	return sb.String()
}

// TableColumns is one table and its rendered column definitions.
type TableColumns struct {
	Table   string
	Columns []string
}
