// Package textutil canonicalizes plug-in names and splits them into token sets.
//
// Installed plug-ins and report lines spell the same product in many ways:
// "UAD-2 Pultec EQP-1A.component", "Universal Audio (UADx): Pultec EQP-1A",
// "pultec eqp-1a". Normalize folds those spellings to one lowercase form by
// stripping container extensions, vendor clauses, and product-line prefixes.
// Tokenize turns a normalized name into a TokenSet, and Vocabulary carries the
// stopword tables the matcher subtracts before comparing sets.
//
// Rule tables are immutable values. DefaultRules and DefaultVocabulary return
// the built-in tables; NewRules and NewVocabulary build replacements from
// configuration.
package textutil
