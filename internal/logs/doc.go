// Package logs reads the tagwarden log file for `tagwarden logs`.
//
// Tail returns the last N lines or everything after a byte offset, keeping
// memory bounded by a ring buffer. A Match substring narrows the output to
// one run, since every line of a mutation run carries its run_id. Follow
// polls for appended lines until the context ends.
package logs
