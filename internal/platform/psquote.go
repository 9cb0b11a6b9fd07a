package platform

import "strings"

// psQuote wraps s as a PowerShell single-quoted literal. Inside single
// quotes only the quote itself is special and is escaped by doubling.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
