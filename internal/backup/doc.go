// Package backup takes and restores full snapshots of the Logic Tags
// directory.
//
// Snapshots are staged under a hidden ".<name>.partial" directory and only
// renamed to "<label>-backup-<YYYYMMDDHHMMSS>" once every file has been
// copied and verified, so a listed snapshot is always complete. Names sort
// chronologically; Latest is the lexicographic maximum. Restoring copies the
// snapshot beside the target and swaps it into place.
package backup
