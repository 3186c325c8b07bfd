// Package assistant prepares plug-in inventories for an external AI tool and
// runs that tool to produce a category mapping.
//
// Export writes the inventory JSON, trimming the plug-in list until the
// document fits the configured byte budget. Generate substitutes the
// inventory into a prompt template and tries each configured tool in order
// until one prints a JSON object. Each tool process is driven by Runner, an
// explicit state machine (spawned, streaming, draining, exited) that reads
// stdout and stderr concurrently and bounds the time spent draining output
// after the process exits.
package assistant
