package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

var validSchemaName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// WithTenantSchema executes a function with schema-per-tenant isolation.
// This is the isolation mechanism for schema-based multi-tenancy.
//
// Usage in repositories:
//
//	schema, err := tenant.TenantSchema(ctx)
//	if err != nil { return err }
//	err = r.db.WithTenantSchema(ctx, schema, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = $1", id)
//	})
//
// How it works:
//  1. Starts a transaction
//  2. Sets "SET LOCAL search_path TO <tenant_schema>, public"
//  3. Stores the transaction in the context so DB query methods route through it
//  4. Commits on success (SET LOCAL is scoped to the transaction, so even with
//     connection pooling the next request on this connection gets clean state)
//
// Unqualified table names inside fn resolve to the tenant's schema; shared
// reference tables live in public.
func (db *DB) WithTenantSchema(ctx context.Context, schema string, fn func(context.Context) error) error {
	// SET LOCAL doesn't support parameterized queries, so the schema name is
	// interpolated. It comes from the public.tenants registry, never from
	// request input, but reject anything outside the identifier charset anyway.
	if !validSchemaName.MatchString(schema) {
		return fmt.Errorf("invalid tenant schema name: %q", schema)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", schema)); err != nil {
			return fmt.Errorf("failed to set search_path to %s: %w", schema, err)
		}

		txCtx := context.WithValue(ctx, txKey{}, tx)

		return fn(txCtx)
	})
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
