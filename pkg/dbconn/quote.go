package dbconn

import "strings"

// QuoteIdentifier quotes a single identifier (column or table name)
// for driver. Embedded quote characters are doubled.
func QuoteIdentifier(driver, name string) string {
	if driver == DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTableName quotes a possibly schema-qualified table name,
// i.e. "public.sensors" becomes "public"."sensors".
func QuoteTableName(driver, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifier(driver, p)
	}
	return strings.Join(parts, ".")
}
