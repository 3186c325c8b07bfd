package licensing

import (
	"log/slog"

	"tagwarden/internal/config"
	"tagwarden/internal/logging"
	"tagwarden/internal/textutil"
)

// MatchResult reports whether an installed plug-in is licensed, by which
// strategy, and which authorization covered it.
type MatchResult struct {
	Matched       bool     `json:"matched"`
	Strategy      Strategy `json:"strategy,omitempty"`
	Authorization string   `json:"authorization,omitempty"`
}

// Matcher evaluates installed names against an AuthorizationSet.
type Matcher struct {
	rules              textutil.Rules
	vocab              textutil.Vocabulary
	canonicalSubstring bool
	logger             *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithCanonicalSubstring toggles the final, most permissive strategy.
func WithCanonicalSubstring(enabled bool) Option {
	return func(m *Matcher) { m.canonicalSubstring = enabled }
}

// WithLogger attaches a logger for DEBUG match decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logging.NewComponentLogger(logger, "licensing") }
}

// NewMatcher builds a matcher over the given rule tables.
func NewMatcher(rules textutil.Rules, vocab textutil.Vocabulary, opts ...Option) *Matcher {
	m := &Matcher{
		rules:              rules,
		vocab:              vocab,
		canonicalSubstring: true,
		logger:             logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMatcherFromConfig builds a matcher from the [matching] section.
func NewMatcherFromConfig(cfg config.Matching, logger *slog.Logger) *Matcher {
	return NewMatcher(
		RulesFromConfig(cfg),
		textutil.NewVocabulary(cfg.BaseStopwords, cfg.DescriptorStopwords, cfg.CollectionKeywords),
		WithCanonicalSubstring(cfg.CanonicalSubstring),
		WithLogger(logger),
	)
}

// RulesFromConfig builds normalization rules from the [matching] section.
func RulesFromConfig(cfg config.Matching) textutil.Rules {
	return textutil.NewRules(textutil.RuleConfig{
		Vendor:     cfg.Vendor,
		Qualifier:  cfg.Qualifier,
		Prefixes:   cfg.ProductPrefixes,
		Extensions: cfg.Extensions,
	})
}

// Rules returns the normalization rules the matcher applies.
func (m *Matcher) Rules() textutil.Rules {
	return m.rules
}

// Vocabulary returns the stopword tables the matcher applies.
func (m *Matcher) Vocabulary() textutil.Vocabulary {
	return m.vocab
}

// Normalize canonicalizes a name with the matcher's rules.
func (m *Matcher) Normalize(name string) string {
	return m.rules.Normalize(name)
}

// Match runs the strategy cascade. Candidates are visited in lexicographic
// order and the first success wins, so reports are reproducible.
func (m *Matcher) Match(installed string, set AuthorizationSet) MatchResult {
	installed = m.rules.Normalize(installed)
	result := m.match(installed, set)
	if result.Matched {
		m.logger.Debug("license matched",
			logging.Args(append(logging.DecisionAttrs("license_match", string(result.Strategy), result.Authorization),
				logging.String("plugin", installed))...)...)
	} else {
		m.logger.Debug("license not found",
			logging.Args(append(logging.DecisionAttrs("license_match", "unlicensed", "no strategy matched"),
				logging.String("plugin", installed))...)...)
	}
	return result
}

func (m *Matcher) match(installed string, set AuthorizationSet) MatchResult {
	if installed == "" {
		return MatchResult{}
	}
	if set.Contains(installed) {
		return MatchResult{Matched: true, Strategy: StrategyExact, Authorization: installed}
	}
	for _, authorized := range set.names {
		p := newPair(installed, authorized)
		if !p.comparable() {
			continue
		}
		if strategy, ok := m.evaluate(p); ok {
			return MatchResult{Matched: true, Strategy: strategy, Authorization: authorized}
		}
	}
	return MatchResult{}
}

func (m *Matcher) evaluate(p pair) (Strategy, bool) {
	if m.vocab.IsCollection(p.authorized) {
		return matchCollection(p, m.vocab)
	}
	switch {
	case tokenCompatible(p, m.vocab):
		return StrategyTokenCompatible, true
	case coreSubset(p, m.vocab):
		return StrategyCoreSubset, true
	case corePlusNumeric(p, m.vocab):
		return StrategyCorePlusNumeric, true
	case m.canonicalSubstring && canonicalSubstring(p):
		return StrategyCanonicalSubstring, true
	}
	return StrategyNone, false
}
