package licensing

import (
	"strings"

	"tagwarden/internal/textutil"
)

// Strategy names the rule that licensed a plug-in.
type Strategy string

const (
	StrategyNone                Strategy = ""
	StrategyExact               Strategy = "exact"
	StrategyCollectionToken     Strategy = "collection-token"
	StrategyCollectionSubstring Strategy = "collection-substring"
	StrategyTokenCompatible     Strategy = "token-compatible"
	StrategyCoreSubset          Strategy = "core-subset"
	StrategyCorePlusNumeric     Strategy = "core-plus-numeric"
	StrategyCanonicalSubstring  Strategy = "canonical-substring"
)

// pair holds both sides of one installed/authorized comparison.
type pair struct {
	installed       string
	authorized      string
	installedTokens textutil.TokenSet
	authTokens      textutil.TokenSet
	common          textutil.TokenSet
}

func newPair(installed, authorized string) pair {
	p := pair{
		installed:       installed,
		authorized:      authorized,
		installedTokens: textutil.SplitTokens(installed),
		authTokens:      textutil.SplitTokens(authorized),
	}
	p.common = p.installedTokens.Intersect(p.authTokens)
	return p
}

// comparable reports whether the candidate is worth evaluating at all.
func (p pair) comparable() bool {
	return !p.installedTokens.Empty() && !p.authTokens.Empty() && !p.common.Empty()
}

// matchCollection applies the collection rules. The boolean is false when the
// candidate is rejected; collection candidates never reach the generic strategies.
func matchCollection(p pair, vocab textutil.Vocabulary) (Strategy, bool) {
	collectionCore := p.authTokens.Minus(vocab.Base, vocab.Descriptor)
	if !collectionCore.Empty() && collectionCore.SubsetOf(p.installedTokens.Minus(vocab.Base)) {
		return StrategyCollectionToken, true
	}
	if strings.Contains(p.authorized, p.installed) || strings.Contains(p.installed, p.authorized) {
		return StrategyCollectionSubstring, true
	}
	return StrategyNone, false
}

func tokenCompatible(p pair, vocab textutil.Vocabulary) bool {
	installedDiff := p.installedTokens.Minus(p.common, vocab.Base, vocab.Descriptor)
	authDiff := p.authTokens.Minus(p.common, vocab.Base, vocab.Descriptor)
	return installedDiff.Empty() && authDiff.Empty()
}

func coreSubset(p pair, vocab textutil.Vocabulary) bool {
	installedCore := p.installedTokens.Minus(vocab.Base, vocab.Descriptor)
	authCore := p.authTokens.Minus(vocab.Base, vocab.Descriptor)
	return !installedCore.Empty() && installedCore.SubsetOf(authCore)
}

func corePlusNumeric(p pair, vocab textutil.Vocabulary) bool {
	installedCore := p.installedTokens.Minus(vocab.Base, vocab.Descriptor)
	authCore := p.authTokens.Minus(vocab.Base, vocab.Descriptor)
	return installedCore.Minus(authCore).AllNumeric()
}

func canonicalSubstring(p pair) bool {
	installed := textutil.Canonical(p.installed)
	authorized := textutil.Canonical(p.authorized)
	if installed == "" || authorized == "" {
		return false
	}
	return strings.Contains(authorized, installed) || strings.Contains(installed, authorized)
}
