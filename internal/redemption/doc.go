// Package redemption turns spark points into reward redemptions.
//
// Redeem debits the ledger first and only writes a record once the debit
// has succeeded, so a rejected debit never leaves a record behind. Records
// snapshot the reward's name, description and cost at purchase time.
//
// The stored status is not advanced by reads. Every read annotates records
// with IsExpired computed against the current time; the optional Sweeper
// materializes status=expired on a cron schedule for consumers that filter
// on status.
package redemption
