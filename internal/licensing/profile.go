package licensing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"tagwarden/internal/textutil"
)

var (
	// ErrProfileNotFound indicates the authorization report path does not exist.
	ErrProfileNotFound = errors.New("system profile not found")
	// ErrNoAuthorizations indicates the report parsed but listed no authorized plug-ins.
	ErrNoAuthorizations = errors.New("no authorized plug-ins found in system profile")
)

const (
	statusSeparator   = ": "
	authorizedMarker  = "authorized"
	minNormalizedName = 3
	maxProfileLine    = 1 << 20
)

// ParseProfile extracts authorized names from a system-profile export. Lines
// look like "UAD Pultec EQP-1A: Authorized for all devices"; the name/status
// split happens at the last ": " so names may contain colons. When lineFilter
// is non-empty the lowercased line must contain it.
//
// The returned error is ErrNoAuthorizations when nothing was authorized; the
// empty set is still returned.
func ParseProfile(r io.Reader, rules textutil.Rules, lineFilter string) (AuthorizationSet, error) {
	lineFilter = strings.ToLower(strings.TrimSpace(lineFilter))
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxProfileLine)

	var names []string
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(scanner.Text(), "�"))
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if !strings.Contains(line, statusSeparator) {
			continue
		}
		if lineFilter != "" && !strings.Contains(strings.ToLower(line), lineFilter) {
			continue
		}
		idx := strings.LastIndex(line, statusSeparator)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		status := strings.ToLower(strings.TrimSpace(line[idx+len(statusSeparator):]))
		if !strings.Contains(status, authorizedMarker) {
			continue
		}
		normalized := rules.Normalize(name)
		if utf8.RuneCountInString(normalized) < minNormalizedName {
			continue
		}
		names = append(names, normalized)
	}
	if err := scanner.Err(); err != nil {
		return AuthorizationSet{}, fmt.Errorf("read system profile: %w", err)
	}

	set := NewAuthorizationSet(names...)
	if set.Len() == 0 {
		return set, ErrNoAuthorizations
	}
	return set, nil
}

// LoadProfile opens path and parses it with ParseProfile.
func LoadProfile(path string, rules textutil.Rules, lineFilter string) (AuthorizationSet, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return AuthorizationSet{}, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return AuthorizationSet{}, fmt.Errorf("open system profile: %w", err)
	}
	defer file.Close()
	return ParseProfile(file, rules, lineFilter)
}
