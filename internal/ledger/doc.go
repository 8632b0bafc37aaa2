// Package ledger keeps each user's spark point balance and quest counters.
//
// The one hard invariant lives here: a balance never goes negative. Debit is
// a single conditional operation in every backend (a compare-and-set under
// the store lock in memory, a guarded UPDATE in postgres), so concurrent
// redemptions cannot both pass a balance check and overdraw the account.
//
// Counters only move up; no decrement is exposed.
package ledger
