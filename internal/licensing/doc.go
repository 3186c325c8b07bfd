// Package licensing decides which installed plug-ins are covered by an
// authorization report.
//
// ParseProfile extracts authorized plug-in names from a vendor system-profile
// export. Matcher compares one installed name against that set with a cascade
// of strategies ordered from strict to permissive: exact, collection-token,
// collection-substring, token-compatible, core-subset, core-plus-numeric, and
// canonical-substring. Collection authorizations ("... Collection", "... Bundle")
// use only the stricter collection strategies so a bundle never licenses an
// unrelated plug-in through one shared descriptive word.
//
// Matching is a heuristic. It never returns an error; an unmatched plug-in is
// simply reported as unlicensed.
package licensing
