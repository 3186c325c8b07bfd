// Package components enumerates installed audio plug-ins.
//
// Scan reads each Audio Unit bundle's Contents/Info.plist and yields one
// Component per AudioComponents entry. A Component's StableKey is the name
// Logic Pro gives its tagset record: the hex of the four-character type,
// subtype, and manufacturer codes joined by dashes.
//
// ScanBundles lists AU, VST, VST3, and AAX bundles by file name and groups
// them per normalized plug-in name, which is what the license report needs.
package components
