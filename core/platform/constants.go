// Package platform names the database platforms dbreconcile can reconcile.
package platform

import (
	"strings"
)

const (
	Postgres = "postgres"
	MySQL    = "mysql"
	MariaDB  = "mariadb"
)

// NormalizeDialect maps driver names, URL schemes and dialect aliases to one of
// the platform constants. Unknown dialects yield an empty string.
func NormalizeDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "pgx", "postgresql", "postgres":
		return Postgres
	case "mysql":
		return MySQL
	case "mariadb":
		return MariaDB
	default:
		return ""
	}
}

// IsMySQLFamily reports whether the dialect speaks the MySQL DDL syntax.
func IsMySQLFamily(dialect string) bool {
	switch NormalizeDialect(dialect) {
	case MySQL, MariaDB:
		return true
	}
	return false
}
