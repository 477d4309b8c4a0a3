package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name passes through", "lecture01.mp4", "lecture01.mp4"},
		{"whitespace collapses to underscore", "my  cool\tvideo.mp4", "my_cool_video.mp4"},
		{"disallowed characters stripped", "lek+cja(1)!.mp4", "lekcja1.mp4"},
		{"path components stripped", "../../etc/passwd", "passwd"},
		{"unicode stripped", "wykład.mp4", "wykad.mp4"},
		{"empty name falls back", "", "upload.bin"},
		{"only junk falls back", "???", "upload.bin"},
		{"leading dots trimmed", "..hidden.mp4", "hidden.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeName_BoundsLength(t *testing.T) {
	t.Run("long base keeps extension", func(t *testing.T) {
		long := strings.Repeat("a", 500) + ".mp4"
		got := SanitizeName(long)

		if len(got) > maxNameLength {
			t.Errorf("expected sanitized name at most %d chars, got %d", maxNameLength, len(got))
		}
		if !strings.HasSuffix(got, ".mp4") {
			t.Errorf("expected extension preserved, got %q", got)
		}
	})

	t.Run("oversized extension falls back", func(t *testing.T) {
		// Every character survives sanitization here, so the whole
		// length bound has to be carried by the extension handling.
		got := SanitizeName("x." + strings.Repeat("a", 300))

		if got != fallbackName {
			t.Errorf("SanitizeName() = %q, expected fallback %q", got, fallbackName)
		}
	})

	t.Run("extension exactly at bound falls back", func(t *testing.T) {
		got := SanitizeName("xx." + strings.Repeat("a", maxNameLength-1))

		if got != fallbackName {
			t.Errorf("SanitizeName() = %q, expected fallback %q", got, fallbackName)
		}
	})
}

func TestDir_Lifecycle(t *testing.T) {
	root := t.TempDir()

	dir, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	if _, err := os.Stat(dir.Path()); err != nil {
		t.Fatalf("expected scratch directory to exist: %v", err)
	}

	file := dir.File("raw video.mp4")
	if filepath.Dir(file) != dir.Path() {
		t.Errorf("expected file inside scratch dir, got %s", file)
	}
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatalf("write scratch file: %v", err)
	}

	sub, err := dir.Subdir("hls")
	if err != nil {
		t.Fatalf("Subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "playlist.m3u8"), []byte("#EXTM3U"), 0o644); err != nil {
		t.Fatalf("write in subdir: %v", err)
	}

	if err := dir.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir.Path()); !os.IsNotExist(err) {
		t.Error("expected scratch directory to be gone after Remove")
	}

	// Removal must be idempotent so deferred cleanup on error paths
	// never reports a spurious failure.
	if err := dir.Remove(); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestDir_FileNeverCollidesWithSubdir(t *testing.T) {
	root := t.TempDir()

	dir, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	defer dir.Remove()

	// A client file named after the transcode output directory must not
	// occupy its path.
	file := dir.File("hls")
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatalf("write scratch file: %v", err)
	}

	sub, err := dir.Subdir("hls")
	if err != nil {
		t.Fatalf("Subdir after writing file named hls: %v", err)
	}
	if sub == file {
		t.Error("expected distinct paths for raw file and subdirectory")
	}
}

func TestNewDir_UniqueNames(t *testing.T) {
	root := t.TempDir()

	a, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	b, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	if a.Path() == b.Path() {
		t.Error("expected distinct scratch directories for concurrent requests")
	}
}
