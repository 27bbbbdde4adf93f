package faq

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestLibrary(t *testing.T, files map[string]string) *Library {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	lib, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return lib
}

func TestGet(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{
		"rules.md":  "# Rules\nBe nice.",
		"notes.txt": "not a faq",
		"server.md": "ip: play.example.com",
	})

	text, ok, err := lib.Get("rules")
	if err != nil || !ok {
		t.Fatalf("Get(rules) = ok=%v, err=%v", ok, err)
	}
	if text != "# Rules\nBe nice." {
		t.Fatalf("Get(rules) = %q", text)
	}

	if _, ok, err := lib.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v, err=%v; want false, nil", ok, err)
	}

	// Non-markdown files are not served.
	if _, ok, _ := lib.Get("notes"); ok {
		t.Fatal("Get(notes) served a non-markdown file")
	}
}

func TestGetRejectsTraversal(t *testing.T) {
	lib := newTestLibrary(t, nil)
	for _, id := range []string{"", "../secret", "a/b", `a\b`, ".."} {
		if _, ok, err := lib.Get(id); ok || err != nil {
			t.Errorf("Get(%q) = ok=%v, err=%v; want false, nil", id, ok, err)
		}
	}
}

func TestIDs(t *testing.T) {
	lib := newTestLibrary(t, map[string]string{
		"rules.md":    "",
		"Ranks.md":    "",
		"server.md":   "",
		"ignored.txt": "",
	})

	ids, err := lib.IDs("")
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	slices.Sort(ids)
	want := []string{"Ranks", "rules", "server"}
	if !slices.Equal(ids, want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}

	// Prefix filtering is case-insensitive.
	ids, err = lib.IDs("r")
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	slices.Sort(ids)
	want = []string{"Ranks", "rules"}
	if !slices.Equal(ids, want) {
		t.Fatalf("IDs(r) = %v, want %v", ids, want)
	}
}
