// Package history records every tagwarden run in a SQLite ledger.
//
// Each mutating or reporting command opens a run with Begin and closes it
// with Finish, recording how many records were affected and which manifest
// and backup the run produced. The ledger is append-only; `tagwarden history`
// reads it newest first.
package history
