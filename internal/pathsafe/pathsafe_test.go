package pathsafe

import (
	"errors"
	"strings"
	"testing"
)

// === Accepted paths ===

func TestSanitizeAcceptsTypicalPaths(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple filename", "model.3mf", "model.3mf"},
		{"absolute path", "/cache/model.3mf", "/cache/model.3mf"},
		{"nested path", "timelapse/video/part.gcode", "timelapse/video/part.gcode"},
		{"redundant segments collapsed", "/cache//sub/./model.3mf", "/cache/sub/model.3mf"},
		{"backslashes normalized", `cache\model.3mf`, "cache/model.3mf"},
		{"surrounding whitespace trimmed", "  model.3mf  ", "model.3mf"},
		{"trailing slash dropped", "/cache/", "/cache"},
		{"spaces inside names", "/cache/my part v2.gcode", "/cache/my part v2.gcode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input)
			if err != nil {
				t.Fatalf("Sanitize(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// === Rejected paths ===

func TestSanitizeRejectsByRule(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyPath},
		{"whitespace only", "   ", ErrEmptyPath},
		{"bare dot", ".", ErrEmptyPath},
		{"parent traversal", "../etc/passwd", ErrPathTraversal},
		{"embedded traversal", "/cache/../../root", ErrPathTraversal},
		{"traversal that collapses harmlessly", "cache/../model.3mf", ErrPathTraversal},
		{"backslash traversal", `..\firmware`, ErrPathTraversal},
		{"system directory exact", "/etc", ErrBlockedDirectory},
		{"system directory nested", "/usr/local/thing", ErrBlockedDirectory},
		{"firmware directory", "/firmware/update.bin", ErrBlockedDirectory},
		{"proc", "/proc/1/mem", ErrBlockedDirectory},
		{"control character", "mod\x07el.3mf", ErrInvalidCharacters},
		{"newline", "model\n.3mf", ErrInvalidCharacters},
		{"shell metacharacter", "model;rm.3mf", ErrInvalidCharacters},
		{"wildcard", "cache/*.gcode", ErrInvalidCharacters},
		{"redirection", "out>file", ErrInvalidCharacters},
		{"hidden file", "/cache/.secret", ErrHiddenFile},
		{"hidden directory segment", "/.config/model.3mf", ErrHiddenFile},
		{"hidden without stem", "/cache/.3mf", ErrHiddenFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Sanitize(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeLengthLimit(t *testing.T) {
	long := "/cache/" + strings.Repeat("a", maxPathLength)
	if _, err := Sanitize(long); !errors.Is(err, ErrPathTooLong) {
		t.Errorf("Sanitize(long) = %v, want ErrPathTooLong", err)
	}

	// Exactly at the limit passes.
	exact := "/" + strings.Repeat("a", maxPathLength-1)
	if _, err := Sanitize(exact); err != nil {
		t.Errorf("Sanitize(exact-limit) failed: %v", err)
	}
}

func TestSanitizeAllowsDotPrefixedMediaFiles(t *testing.T) {
	for _, input := range []string{".part.3mf", "/cache/.draft.gcode", "/cache/.Model.STL"} {
		got, err := Sanitize(input)
		if err != nil {
			t.Errorf("Sanitize(%q) failed: %v", input, err)
			continue
		}
		if got == "" {
			t.Errorf("Sanitize(%q) returned empty path", input)
		}
	}
}

func TestSanitizeHiddenDirectoryWithMediaFile(t *testing.T) {
	// The allowance applies to the final segment only; a hidden
	// directory on the way is still rejected.
	if _, err := Sanitize("/.cache/model.3mf"); !errors.Is(err, ErrHiddenFile) {
		t.Errorf("Sanitize(hidden dir) = %v, want ErrHiddenFile", err)
	}
}

func TestSanitizeErrorNamesTheRule(t *testing.T) {
	_, err := Sanitize("/cache/../../root")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "traversal") {
		t.Errorf("error %q should name the traversal rule", err)
	}
}
