package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.md", "top note")
	writeFile(t, root, "work/deep/nested.md", "nested note")
	writeFile(t, root, "other.markdown", "alt extension")
	writeFile(t, root, "skip.txt", "not a note")
	writeFile(t, root, ".tsunagu/cache.md", "hidden dir content")

	notes, err := Scan(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 {
		t.Fatalf("got %d notes: %+v", len(notes), notes)
	}
	// Sorted, vault-relative, forward slashes.
	want := []string{"other.markdown", "top.md", "work/deep/nested.md"}
	for i, w := range want {
		if notes[i].Path != w {
			t.Errorf("note %d: got %q, want %q", i, notes[i].Path, w)
		}
	}
	if notes[1].Content != "top note" {
		t.Errorf("content: got %q", notes[1].Content)
	}
}

func TestScan_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "md")
	writeFile(t, root, "b.txt", "txt")

	notes, err := Scan(root, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Path != "b.txt" {
		t.Errorf("got %+v", notes)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestScan_RootNotDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.md", "x")
	if _, err := Scan(filepath.Join(root, "file.md"), nil); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestScan_EmptyVault(t *testing.T) {
	notes, err := Scan(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("got %+v", notes)
	}
}
