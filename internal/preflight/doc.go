// Package preflight provides readiness checks for the filesystem paths and
// external tools that tagwarden depends on.
//
// These checks run in two contexts:
//   - Mutating workflows call RunAll before touching the Tags directory and
//     refuse to continue when a required check fails.
//   - The CLI "tagwarden status" command renders every Result for the user.
//
// FreeBytes backs the free-space guard taken before each backup snapshot.
package preflight
