// Package all registers every built-in storage backend ("mssql", "postgres"
// and "sqlite") with the storage factory. Import it for its side effects:
//
//	import _ "adinsights/internal/storage/all"
package all

import (
	_ "adinsights/internal/storage/mssql"
	_ "adinsights/internal/storage/postgres"
	_ "adinsights/internal/storage/sqlite"
)
