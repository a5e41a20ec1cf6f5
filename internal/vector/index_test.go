package vector

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_InvalidDimensions(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	if _, err := New(-3); err == nil {
		t.Error("expected error for negative dimensions")
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ix, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Add([]string{"a"}, [][]float32{{1, 2}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := ix.Add([]string{"a", "b"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestSearch_Ordering(t *testing.T) {
	ix, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	err = ix.Add(
		[]string{"x.md", "y.md", "z.md"},
		[][]float32{{1, 0}, {0, 1}, {0.7071, 0.7071}},
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Path != "x.md" || results[1].Path != "z.md" || results[2].Path != "y.md" {
		t.Errorf("order: %s, %s, %s", results[0].Path, results[1].Path, results[2].Path)
	}
	if math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("top score: %f", results[0].Score)
	}
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ix, _ := New(2)
	_ = ix.Add([]string{"only.md"}, [][]float32{{1, 0}})
	results, err := ix.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearch_Empty(t *testing.T) {
	ix, _ := New(2)
	results, err := ix.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("got %v, want nil", results)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	ix, _ := New(3)
	if _, err := ix.Search(context.Background(), []float32{1, 0}, 5); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.bin")

	ix, _ := New(3)
	paths := []string{"notes/first.md", "second.md"}
	vecs := [][]float32{{1, 0, 0}, {0, 0.6, 0.8}}
	if err := ix.Add(paths, vecs); err != nil {
		t.Fatal(err)
	}
	if err := ix.Save(file); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(file + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	loaded, _ := New(3)
	if err := loaded.Load(file); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("size: got %d", loaded.Size())
	}
	got := loaded.Paths()
	for i, want := range paths {
		if got[i] != want {
			t.Errorf("path %d: got %q, want %q", i, got[i], want)
		}
	}
	results, err := loaded.Search(context.Background(), []float32{0, 0.6, 0.8}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Path != "second.md" {
		t.Errorf("top hit after reload: %s", results[0].Path)
	}
}

func TestLoad_MissingFileIsNoOp(t *testing.T) {
	ix, _ := New(3)
	if err := ix.Load(filepath.Join(t.TempDir(), "absent.bin")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
	if ix.Size() != 0 {
		t.Errorf("size: got %d", ix.Size())
	}
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.bin")
	ix, _ := New(2)
	_ = ix.Add([]string{"a.md"}, [][]float32{{1, 0}})
	if err := ix.Save(file); err != nil {
		t.Fatal(err)
	}

	other, _ := New(5)
	if err := other.Load(file); err == nil {
		t.Error("expected dimension mismatch error")
	}
}
