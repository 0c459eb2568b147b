package dbal

// Drivers for the supported dialects, registered as "mysql", "postgres"
// and "sqlite".
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)
