package textutil

import "strings"

var (
	defaultBaseStopwords = []string{
		"uad", "ua", "uadx", "universal", "audio", "plugin", "plugins",
		"collection", "bundle", "pack", "series", "edition", "legacy",
		"mk", "mk2", "mkii", "mono", "stereo", "mix", "master", "limited",
		"expanded", "version",
	}
	defaultDescriptorStopwords = []string{
		"digital", "analog", "reverb", "delay", "echo", "tape", "mastering",
		"recorder", "pitch", "shifter", "amp", "amplifier", "guitar", "bass",
		"classic", "super", "lead", "deluxe", "silver", "jubilee",
		"bluesbreaker", "tweed", "vintage", "leveler", "jr", "sr", "el7",
		"el8", "room", "channel", "strip", "compressor", "limiter", "eq",
		"preamp", "preamplifier", "mic", "microphone",
	}
	defaultCollectionKeywords = []string{"collection", "bundle", "pack", "series"}
)

// Vocabulary holds the stopword tables used by the matcher.
//
// Base stopwords are vendor and packaging noise. Descriptor stopwords are
// generic product-category words that must not, on their own, prove two names
// refer to the same product. Collection keywords mark an authorization that
// covers a family of plug-ins.
type Vocabulary struct {
	Base       TokenSet
	Descriptor TokenSet
	collection []string
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(nil, nil, nil)
}

// NewVocabulary builds a vocabulary. A nil or empty list selects the built-in table.
func NewVocabulary(base, descriptor, collection []string) Vocabulary {
	if len(lowerAll(base)) == 0 {
		base = defaultBaseStopwords
	}
	if len(lowerAll(descriptor)) == 0 {
		descriptor = defaultDescriptorStopwords
	}
	collection = lowerAll(collection)
	if len(collection) == 0 {
		collection = append([]string(nil), defaultCollectionKeywords...)
	}
	return Vocabulary{
		Base:       NewTokenSet(lowerAll(base)...),
		Descriptor: NewTokenSet(lowerAll(descriptor)...),
		collection: collection,
	}
}

// IsCollection reports whether a normalized name names a collection.
func (v Vocabulary) IsCollection(normalized string) bool {
	for _, keyword := range v.collection {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// Stopwords returns the union of both stopword tables.
func (v Vocabulary) Stopwords() TokenSet {
	return v.Base.Union(v.Descriptor)
}
