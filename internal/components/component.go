package components

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Plug-in bundle formats.
const (
	FormatAU      = "AU"
	FormatVST     = "VST"
	FormatVST3    = "VST3"
	FormatAAX     = "AAX"
	FormatUnknown = "Unknown"
)

// Component is one Audio Unit registered by a .component bundle.
type Component struct {
	Name         string `json:"name"`
	Normalized   string `json:"normalized"`
	Path         string `json:"component"`
	Type         string `json:"type"`
	Subtype      string `json:"subtype"`
	Manufacturer string `json:"manufacturer"`
	BundleID     string `json:"bundle_id,omitempty"`
	BundleName   string `json:"bundle_name,omitempty"`
	Format       string `json:"format"`
}

// StableKey returns the tagset record key Logic derives from the component codes.
func (c Component) StableKey() string {
	return hex.EncodeToString([]byte(c.Type)) + "-" +
		hex.EncodeToString([]byte(c.Subtype)) + "-" +
		hex.EncodeToString([]byte(c.Manufacturer))
}

// Vendor returns the manufacturer prefix of a "Vendor: Product" name, or "".
func (c Component) Vendor() string {
	if idx := strings.Index(c.Name, ":"); idx > 0 {
		return strings.TrimSpace(c.Name[:idx])
	}
	return ""
}

// FormatForPath maps a bundle extension to its format name.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".component":
		return FormatAU
	case ".vst":
		return FormatVST
	case ".vst3":
		return FormatVST3
	case ".aaxplugin":
		return FormatAAX
	default:
		return FormatUnknown
	}
}

// fourCC renders an OSType value from Info.plist. Codes are usually strings;
// some bundles store them as 32-bit integers.
func fourCC(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case uint64:
		return packCode(v), true
	case int64:
		return packCode(uint64(v)), true
	case int:
		return packCode(uint64(v)), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func packCode(v uint64) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return string(buf[:])
}
