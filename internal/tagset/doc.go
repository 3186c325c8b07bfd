// Package tagset reads and writes Logic Pro's plug-in tag database.
//
// The Tags directory holds one "<key>.tagset" property list per Audio Unit,
// plus MusicApps.properties (category sorting order) and MusicApps.tagpool
// (the category pool). A tagset record is a free-form dictionary; tagwarden
// only touches the "hide" marker and the "tags" dictionary and keeps every
// other key as it found it. Records are written back in the plist encoding
// they were read in.
package tagset
