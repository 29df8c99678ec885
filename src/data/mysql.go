package data

import (
	"os"
	"strings"
)

// GetMySQLDSN returns the MySQL DSN configured via environment. The settings
// store is optional, so an unset DSN is not an error.
func GetMySQLDSN() (string, bool) {
	dsn := strings.TrimSpace(os.Getenv("MYSQL_DSN"))
	return dsn, dsn != ""
}
