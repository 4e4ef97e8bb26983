// Package match decides whether a filename discovered in a cache or download
// directory is an in-flight installer artifact for a tracked item. It layers
// a cheap artifact prefilter in front of a fixed list of heuristic matching
// strategies, short-circuiting on the first that succeeds.
package match

import (
	"path/filepath"
	"strings"
)

// artifactExtensions is the allow-list of package, archive and disk-image
// extensions that can be installer artifacts.
var artifactExtensions = map[string]bool{
	".pkg":   true,
	".mpkg":  true,
	".dmg":   true,
	".iso":   true,
	".zip":   true,
	".tar":   true,
	".gz":    true,
	".tgz":   true,
	".bz2":   true,
	".xz":    true,
	".xip":   true,
	".app":   true,
	".deb":   true,
	".rpm":   true,
	".msi":   true,
	".exe":   true,
}

// artifactMarkers are filename substrings that identify in-progress or staged
// installer files regardless of extension.
var artifactMarkers = []string{
	"installer",
	"install",
	"setup",
	"partial",
	"download",
	"temp",
	"tmp",
}

// brandPrefixes are vendor names whose installers often carry only the
// product name, not the vendor. When an item id starts with one of these the
// matcher falls back to the product token alone.
var brandPrefixes = map[string]bool{
	"microsoft": true,
	"adobe":     true,
	"google":    true,
	"apple":     true,
	"mozilla":   true,
	"cisco":     true,
	"citrix":    true,
	"vmware":    true,
	"oracle":    true,
	"jetbrains": true,
}

// IsArtifact reports whether filename looks like an installer artifact at
// all. Non-artifacts are skipped outright, regardless of name similarity.
func IsArtifact(filename string) bool {
	lower := strings.ToLower(filename)

	if artifactExtensions[strings.ToLower(filepath.Ext(lower))] {
		return true
	}
	for _, marker := range artifactMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Matches reports whether filename belongs to the item identified by itemID
// and displayName. The prefilter runs first; then each strategy is tried in
// order with short-circuit on the first success.
func Matches(itemID, displayName, filename string) bool {
	if !IsArtifact(filename) {
		return false
	}

	lower := strings.ToLower(filename)
	id := strings.ToLower(itemID)
	name := strings.ToLower(displayName)

	if directSubstring(lower, id, name) {
		return true
	}
	if componentMatch(lower, id) || componentMatch(lower, name) {
		return true
	}
	if condensedMatch(lower, id, name) {
		return true
	}
	return brandFallback(lower, id)
}

// directSubstring checks the whole id or display name (with space and
// underscore variants collapsed) against the filename.
func directSubstring(filename, id, name string) bool {
	if id != "" && strings.Contains(filename, id) {
		return true
	}
	if name == "" {
		return false
	}
	noSpaces := strings.ReplaceAll(name, " ", "")
	if noSpaces != "" && strings.Contains(filename, noSpaces) {
		return true
	}
	collapsed := strings.ReplaceAll(noSpaces, "_", "")
	return collapsed != "" && strings.Contains(filename, collapsed)
}

// componentMatch splits source into tokens on underscore, hyphen and space,
// drops tokens of length <= 2, and requires every remaining token to appear
// in the filename.
func componentMatch(filename, source string) bool {
	tokens := splitTokens(source)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(filename, tok) {
			return false
		}
	}
	return true
}

// condensedMatch strips underscores entirely and retries containment.
func condensedMatch(filename, id, name string) bool {
	condensedID := strings.ReplaceAll(id, "_", "")
	if condensedID != "" && condensedID != id && strings.Contains(filename, condensedID) {
		return true
	}
	condensedName := strings.ReplaceAll(strings.ReplaceAll(name, " ", ""), "_", "")
	return condensedName != "" && strings.Contains(filename, condensedName)
}

// brandFallback handles vendor-branded ids like "microsoft_word": when the
// first token is a known multi-product brand, the product token alone is
// enough.
func brandFallback(filename, id string) bool {
	tokens := strings.FieldsFunc(id, isSeparator)
	if len(tokens) < 2 || !brandPrefixes[tokens[0]] {
		return false
	}
	return strings.Contains(filename, tokens[1])
}

func splitTokens(s string) []string {
	raw := strings.FieldsFunc(s, isSeparator)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}
