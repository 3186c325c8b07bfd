// Package workflow runs tagwarden's operations against one Logic Tags
// directory.
//
// Service ties together license matching, manifested mutations, directory
// snapshots, category assignment and the AI mapping step. Operations that
// write into the Tags directory hold an exclusive file lock for their
// duration, and every mutating run is recorded in the history ledger. The
// full pipeline (Pipeline) chains backup, hide, tag listing, export, mapping
// and organize, and writes a summary report.
package workflow
