// Package dialectutil holds database/sql plumbing shared by the four
// rdbms.Client dialect adapters (mysql, oracle, postgres, sqlserver):
// batched inserts, a generic sync primitive, LOB chunked readers and
// information_schema reflection. Keeping it here means each dialect
// package only has to supply its DSN, driver name and placeholder style.
package dialectutil

import "fmt"

// PlaceholderStyle names how a dialect spells bound-parameter
// placeholders in SQL text.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // MySQL: ?
	PlaceholderDollar                           // Postgres: $1, $2, ...
	PlaceholderAt                               // SQL Server: @p1, @p2, ...
	PlaceholderColon                            // Oracle: :1, :2, ...
)

// Placeholder renders the i'th (1-based) placeholder for style.
func Placeholder(style PlaceholderStyle, i int) string {
	switch style {
	case PlaceholderDollar:
		return fmt.Sprintf("$%d", i)
	case PlaceholderAt:
		return fmt.Sprintf("@p%d", i)
	case PlaceholderColon:
		return fmt.Sprintf(":%d", i)
	default:
		return "?"
	}
}
