package licensing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tagwarden/internal/textutil"
)

const sampleProfile = `UA System Profile
----------------------------------------
Plug-ins
UAD Pultec EQP-1A: Authorized for all devices
UAD Fairchild Collection: Authorized for all devices
UAD Neve 1073: Demo not started
UAD Studer A800: Demo expired
UAD Lexicon 224: Authorized for all devices
UAD Ocean Way: Studios: Authorized for all devices
UAD EL: Authorized for all devices
-UAD Hidden: Authorized for all devices
Apollo Twin: Authorized for all devices

  UAD 1176SE : Authorized
`

func TestParseProfile(t *testing.T) {
	set, err := ParseProfile(strings.NewReader(sampleProfile), textutil.DefaultRules(), "uad")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}
	want := []string{"1176se", "fairchild collection", "lexicon 224", "ocean way: studios", "pultec eqp-1a"}
	got := set.Names()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ParseProfile = %q, want %q", got, want)
	}
}

func TestParseProfileCountsCharacters(t *testing.T) {
	profile := "UAD éa: Authorized\nUAD Ré: Authorized\nUAD Ré3: Authorized\nUAD 1073: Authorized\n"
	set, err := ParseProfile(strings.NewReader(profile), textutil.DefaultRules(), "uad")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}
	want := []string{"1073", "ré3"}
	if got := set.Names(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ParseProfile = %q, want %q", got, want)
	}
}

func TestParseProfileWithoutLineFilter(t *testing.T) {
	set, err := ParseProfile(strings.NewReader(sampleProfile), textutil.DefaultRules(), "")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}
	if !set.Contains("apollo twin") {
		t.Fatalf("expected non-UAD line when filter disabled, got %q", set.Names())
	}
}

func TestParseProfileNoAuthorizations(t *testing.T) {
	set, err := ParseProfile(strings.NewReader("UAD Neve 1073: Demo expired\n"), textutil.DefaultRules(), "uad")
	if !errors.Is(err, ErrNoAuthorizations) {
		t.Fatalf("expected ErrNoAuthorizations, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %q", set.Names())
	}
}

func TestParseProfileReplacesInvalidUTF8(t *testing.T) {
	input := "UAD Caf\xe9 Strip: Authorized for all devices\n"
	set, err := ParseProfile(strings.NewReader(input), textutil.DefaultRules(), "uad")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}
	if set.Len() != 1 || !strings.HasPrefix(set.Names()[0], "caf") {
		t.Fatalf("unexpected names: %q", set.Names())
	}
}

func TestLoadProfileMissing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.txt"), textutil.DefaultRules(), "uad")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestLoadProfileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.txt")
	if err := os.WriteFile(path, []byte(sampleProfile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	set, err := LoadProfile(path, textutil.DefaultRules(), "uad")
	if err != nil {
		t.Fatalf("LoadProfile returned error: %v", err)
	}
	if set.Len() != 5 {
		t.Fatalf("expected 5 authorizations, got %d", set.Len())
	}
}
