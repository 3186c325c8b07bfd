// Package main hosts the tagwarden CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, opens the run history and
// the structured logger, then hands each verb to workflow.Service. Commands
// only parse flags and render results; scanning, matching and every write to
// the Tags directory live in the internal packages.
package main
