package migrations

import (
	"regexp"
	"strings"
)

// Dialect selects the driver and placeholder style for a history DSN.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var numberedPlaceholder = regexp.MustCompile(`\$[0-9]+`)

func DialectFor(dsn string) Dialect {
	lowered := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lowered, "postgres://") || strings.HasPrefix(lowered, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Rebind rewrites $N placeholders for drivers that expect ?. Statements must
// number their placeholders in order of appearance.
func (d Dialect) Rebind(query string) string {
	if d == DialectPostgres {
		return query
	}
	return numberedPlaceholder.ReplaceAllString(query, "?")
}
