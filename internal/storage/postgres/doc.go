// Package postgres implements the sparkd stores on PostgreSQL.
//
// Each store satisfies the interface declared by its domain package
// (ledger.Ledger, redemption.Store, reflection.Store, profile.Store and
// quest.AssignmentStore) and shares one *sqlx.DB. Driver failures are
// wrapped with errs.Upstream; integrity violations become errs.ErrValidation.
//
// The schema lives in migrations/ and is applied with Migrate.
package postgres
