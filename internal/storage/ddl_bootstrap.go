package storage

import (
	"context"
	"fmt"
	"sync"

	"adinsights/internal/ddl"
)

// DDLBootstrapper maps a generic table definition to the backend's dialect
// and applies it through repo.Exec (typically CREATE TABLE IF NOT EXISTS).
type DDLBootstrapper func(ctx context.Context, repo Repository, def ddl.TableDef) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind. Backends
// call it from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable applies def through the bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, def ddl.TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no DDL bootstrapper for %q", ErrUnknownKind, kind)
	}
	return fn(ctx, repo, def)
}
