package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ensembleapp/ensemble/internal/domain/identity"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type scannable interface {
	Scan(dest ...any) error
}

// permsParam encodes a permission set for storage. A NULL modules column
// means all modules; a restricted set is stored as a text array.
func permsParam(p identity.Permissions) []string {
	if p.IsAll() {
		return nil
	}
	return p.Modules()
}

// permsFromColumn is the inverse of permsParam.
func permsFromColumn(modules []string) identity.Permissions {
	if modules == nil {
		return identity.AllModules()
	}
	return identity.Subset(modules...)
}
