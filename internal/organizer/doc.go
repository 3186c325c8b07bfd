// Package organizer assigns Logic categories to installed Audio Units.
//
// A Mapping (JSON or YAML) lists the categories Logic should show, vendor
// aliases used to recognize a plug-in's maker, exclusions, explicit
// overrides, per-vendor regex rules, global rules and a fallback category.
// Categorize evaluates them in that order for one component. Apply writes
// the result through a manifest.Mutator so every change can be undone with
// `tagwarden restore --manifest`.
package organizer
