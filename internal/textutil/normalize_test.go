package textutil

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"component extension", "UAD Pultec EQP-1A.component", "pultec eqp-1a"},
		{"vst3 extension upper", "UAD-2 Lexicon 224.VST3", "lexicon 224"},
		{"aax extension", "UADx Manley VOXBOX.aaxplugin", "manley voxbox"},
		{"vendor clause", "Universal Audio (UADx): Pultec EQP-1A", "pultec eqp-1a"},
		{"vendor clause no qualifier", "universal audio: Neve 1073", "neve 1073"},
		{"vendor clause wide spacing", "  Universal   Audio ( UAD-2 ) :  Neve 1073", "neve 1073"},
		{"longest prefix first", "UAD-2 1176SE", "1176se"},
		{"uadx prefix", "UADX 1176 Classic Limiter", "1176 classic limiter"},
		{"prefix needs separator", "UADx1176", "uadx1176"},
		{"collapse whitespace", "Fairchild    670\tLegacy", "fairchild 670 legacy"},
		{"stacked prefixes", "UAD UAD-2 Studer A800", "studer a800"},
		{"prefix alone", "UAD", "uad"},
		{"composed accent", "Ocean Way Studios Café", "ocean way studios café"},
		{"no-break spaces", "x\u00a0\u00a0y", "x y"},
		{"ideographic space", "Neve\u30001073", "neve 1073"},
		{"no-break vendor clause", "Universal\u00a0Audio\u00a0(UAD-2):\u00a0Neve 1073", "neve 1073"},
		{"trailing line separator", "Pultec EQP-1A\u2028", "pultec eqp-1a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewRulesCustomVendor(t *testing.T) {
	rules := NewRules(RuleConfig{
		Vendor:     "Softube",
		Qualifier:  "native",
		Prefixes:   []string{"ST"},
		Extensions: []string{".vst3"},
	})
	if got := rules.Normalize("Softube (Native): ST Tube-Tech CL 1B.vst3"); got != "tube-tech cl 1b" {
		t.Fatalf("custom rules normalize = %q", got)
	}
	if got := rules.Normalize("UAD 1176.component"); got != "uad 1176.component" {
		t.Fatalf("custom rules should ignore default tables, got %q", got)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("UAD-2 EMT 140 Classic Plate Reverberator (EMT-140)").Sorted()
	want := []string{"140", "classic", "emt", "plate", "reverberator"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if !Tokenize("").Empty() {
		t.Fatal("expected empty token set for empty input")
	}
}

func TestIsNumeric(t *testing.T) {
	tests := map[string]bool{"": false, "2": true, "1176": true, "mk2": false, "２": false, "-1": false}
	for in, want := range tests {
		if got := IsNumeric(in); got != want {
			t.Fatalf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenSetOperations(t *testing.T) {
	a := NewTokenSet("fairchild", "670", "uad")
	b := NewTokenSet("fairchild", "collection")
	if got := a.Intersect(b).String(); got != "fairchild" {
		t.Fatalf("Intersect = %q", got)
	}
	if got := a.Minus(b, NewTokenSet("uad")).String(); got != "670" {
		t.Fatalf("Minus = %q", got)
	}
	if !NewTokenSet("fairchild").SubsetOf(a) {
		t.Fatal("expected subset")
	}
	if !NewTokenSet().SubsetOf(a) {
		t.Fatal("empty set must be a subset")
	}
	if NewTokenSet().AllNumeric() {
		t.Fatal("empty set is not all-numeric")
	}
	if !NewTokenSet("2", "3").AllNumeric() {
		t.Fatal("expected all-numeric")
	}
}

func TestCanonicalAndSanitize(t *testing.T) {
	if got := Canonical("pultec eqp-1a"); got != "pulteceqp1a" {
		t.Fatalf("Canonical = %q", got)
	}
	if got := SanitizeToken("GH Copilot"); got != "gh_copilot" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("SanitizeToken(blank) = %q", got)
	}
}

func TestVocabularyIsCollection(t *testing.T) {
	vocab := DefaultVocabulary()
	for _, name := range []string{"fairchild collection", "neve bundle", "api 500 series"} {
		if !vocab.IsCollection(name) {
			t.Fatalf("expected %q to be a collection", name)
		}
	}
	if vocab.IsCollection("pultec eqp-1a") {
		t.Fatal("pultec is not a collection")
	}
	custom := NewVocabulary([]string{"foo"}, nil, []string{"suite"})
	if !custom.Base.Contains("foo") || custom.Base.Contains("uad") {
		t.Fatalf("unexpected custom base stopwords: %v", custom.Base.Sorted())
	}
	if !custom.Descriptor.Contains("compressor") {
		t.Fatal("empty descriptor list should keep defaults")
	}
	if !custom.IsCollection("studio suite") || custom.IsCollection("fairchild collection") {
		t.Fatal("custom collection keywords not applied")
	}
}

var nameFragments = []string{
	"UAD", "UAD-2", "UADx", "uad", " ", "  ", "\t", "Universal Audio (UAD-2): ",
	"universal audio: ", ".component", ".vst", ".VST3", ".aaxplugin", "Pultec", "EQP-1A",
	"1176", "SE", "Fairchild", "Collection", ":", "(", ")", "-", "é", "é",
}

func fragmentsToName(indexes []int) string {
	var b strings.Builder
	for _, idx := range indexes {
		b.WriteString(nameFragments[idx])
	}
	return b.String()
}

func TestNormalizeIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize(normalize(x)) == normalize(x) for fragment soup", prop.ForAll(
		func(indexes []int) bool {
			once := Normalize(fragmentsToName(indexes))
			return Normalize(once) == once
		},
		gen.SliceOf(gen.IntRange(0, len(nameFragments)-1)),
	))

	properties.Property("normalize(normalize(x)) == normalize(x) for arbitrary strings", prop.ForAll(
		func(raw string) bool {
			once := Normalize(raw)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestTokenizeIsOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("token set ignores word order and duplicates", prop.ForAll(
		func(words []string, shift int) bool {
			if len(words) == 0 {
				return SplitTokens("").Empty()
			}
			forward := strings.Join(words, " ")
			rotated := make([]string, 0, len(words)*2)
			offset := shift % len(words)
			rotated = append(rotated, words[offset:]...)
			rotated = append(rotated, words[:offset]...)
			rotated = append(rotated, words...)
			return SplitTokens(strings.ToLower(forward)).Equal(SplitTokens(strings.ToLower(strings.Join(rotated, " "))))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(0, 16),
	))

	properties.TestingRun(t)
}
