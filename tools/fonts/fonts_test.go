package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"stroke-quiz/tools/logger"
)

func TestLoadFallsBackOnMissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.otf"), 0, logger.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()

	if !f.Fallback() {
		t.Error("expected fallback font")
	}
	if f.Face().Size() != DefaultSize {
		t.Errorf("size = %g, want %d", f.Face().Size(), DefaultSize)
	}
	if !f.Covers("ABC") {
		t.Error("fallback font should cover ASCII")
	}
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(path, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path, 48, logger.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()

	if !f.Fallback() {
		t.Error("expected fallback font for unparsable file")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path, 64, logger.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()

	if f.Fallback() {
		t.Error("valid file reported as fallback")
	}
	if f.Face().Size() != 64 {
		t.Errorf("size = %g, want 64", f.Face().Size())
	}
}

func TestLoadTriesFallbackFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.ttf")
	if err := os.WriteFile(garbage, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	system := filepath.Join(dir, "system.ttf")
	if err := os.WriteFile(system, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}

	fallbacks := []string{filepath.Join(dir, "absent.ttc"), garbage, system}
	f, err := LoadWithFallbacks("", 0, fallbacks, logger.Discard())
	if err != nil {
		t.Fatalf("LoadWithFallbacks: %v", err)
	}
	defer f.Close()

	if f.Path() != system {
		t.Errorf("loaded %q, want %q", f.Path(), system)
	}
	if !f.Fallback() {
		t.Error("system font should count as a fallback")
	}
}

func TestLoadEmbeddedWhenNoFallbackFileUsable(t *testing.T) {
	f, err := LoadWithFallbacks("", 0, []string{filepath.Join(t.TempDir(), "absent.ttc")}, logger.Discard())
	if err != nil {
		t.Fatalf("LoadWithFallbacks: %v", err)
	}
	defer f.Close()

	if f.Path() != "" || !f.Fallback() {
		t.Errorf("path = %q fallback = %v, want embedded fallback", f.Path(), f.Fallback())
	}
	if f.Covers("日") {
		t.Error("Go Regular unexpectedly covers CJK")
	}
}
