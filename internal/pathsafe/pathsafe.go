package pathsafe

import (
	"fmt"
	"path"
	"strings"
)

// maxPathLength is the device storage path limit, measured after
// normalization.
const maxPathLength = 240

// blockedDirectories are the device's reserved top-level directories.
// Uploading into (or listing) any of these can brick the unit, so they
// are rejected outright.
var blockedDirectories = []string{
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/proc",
	"/sbin",
	"/sys",
	"/system",
	"/usr",
	"/var",
	"/firmware",
}

// invalidCharacters cannot appear anywhere in a remote path. The set is
// the device filesystem's reserved characters plus shell metacharacters
// the transfer channel would mangle.
const invalidCharacters = `<>:"|?*` + "`$;"

// hiddenFileAllowed are the extensions a dot-prefixed file may still
// carry. Some slicers emit dot-prefixed working copies of these and
// users legitimately transfer them.
var hiddenFileAllowed = []string{".3mf", ".gcode", ".stl"}

// Sanitize validates a remote path and returns its normalized form.
//
// Normalization lowers separators to forward slashes and collapses
// redundant segments. Validation then applies, in order: empty input,
// control and reserved characters, traversal sequences, length, system
// directories, and hidden-file naming. The first failing rule is
// reported; its error wraps the matching package sentinel.
//
// Parameters:
//   - input: The user-supplied remote path or filename
//
// Returns:
//   - string: The normalized path, safe to hand to the transfer channel
//   - error: One of the package sentinels, wrapped with detail
func Sanitize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrEmptyPath
	}

	// The device's storage uses forward slashes regardless of the
	// client's platform.
	normalized := strings.ReplaceAll(trimmed, `\`, "/")

	if err := checkCharacters(normalized); err != nil {
		return "", err
	}

	// Traversal is checked before Clean collapses "a/../b" into "b":
	// an input that tries to traverse is hostile even when the
	// collapsed result would land somewhere harmless.
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, input)
		}
	}

	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q normalizes to nothing", ErrEmptyPath, input)
	}

	if len(cleaned) > maxPathLength {
		return "", fmt.Errorf("%w: %d characters (limit %d)", ErrPathTooLong, len(cleaned), maxPathLength)
	}

	if dir := blockedDirectory(cleaned); dir != "" {
		return "", fmt.Errorf("%w: %q is under %s", ErrBlockedDirectory, cleaned, dir)
	}

	if err := checkHidden(cleaned); err != nil {
		return "", err
	}

	return cleaned, nil
}

// checkCharacters rejects control characters and the reserved set.
func checkCharacters(p string) error {
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character 0x%02x", ErrInvalidCharacters, r)
		}
		if strings.ContainsRune(invalidCharacters, r) {
			return fmt.Errorf("%w: %q", ErrInvalidCharacters, r)
		}
	}
	return nil
}

// blockedDirectory returns the reserved directory a path falls under,
// or "" when it falls under none.
func blockedDirectory(cleaned string) string {
	for _, dir := range blockedDirectories {
		if cleaned == dir || strings.HasPrefix(cleaned, dir+"/") {
			return dir
		}
	}
	return ""
}

// checkHidden rejects dot-prefixed path segments unless the final
// segment carries an allowed media extension.
func checkHidden(cleaned string) error {
	segments := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
	for i, segment := range segments {
		if !strings.HasPrefix(segment, ".") {
			continue
		}
		if i == len(segments)-1 && allowedHidden(segment) {
			continue
		}
		return fmt.Errorf("%w: %q", ErrHiddenFile, segment)
	}
	return nil
}

// allowedHidden reports whether a dot-prefixed filename carries one of
// the allowed media extensions.
func allowedHidden(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range hiddenFileAllowed {
		if strings.HasSuffix(lower, ext) && len(lower) > len(ext) {
			return true
		}
	}
	return false
}
