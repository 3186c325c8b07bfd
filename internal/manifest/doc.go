// Package manifest applies reversible edits to tagset records.
//
// Before a Mutator rewrites a record it captures the record's exact prior
// bytes (or its absence) in a Manifest entry. Restore replays a manifest in
// reverse: records that did not exist are deleted and every other record is
// overwritten with its captured bytes, so restoring is the exact inverse of
// applying, independent of any directory backup.
//
// A manifest is persisted only after a batch completes. When a write fails
// midway the caller receives a *PartialError with the number of records
// already changed; the directory backup is the recovery path in that case.
package manifest
