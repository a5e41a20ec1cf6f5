// Package vector provides a flat in-memory vector index with brute-force
// top-K inner-product search and binary persistence.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Index holds normalized vectors in row order, each row aligned 1:1 with a
// note path. Rows are only ever replaced wholesale (a rebuild swaps the whole
// index); partial row updates would break the path/row alignment.
type Index struct {
	dimensions int
	paths      []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// Result is a single vector search hit.
type Result struct {
	Path  string
	Score float64
}

// New creates an empty index with the given dimension.
func New(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Dimensions returns the vector dimension.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// Add appends vectors with their paths, preserving order.
func (ix *Index) Add(paths []string, vectors [][]float32) error {
	if len(paths) != len(vectors) {
		return fmt.Errorf("paths and vectors length mismatch")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, p := range paths {
		if len(vectors[i]) != ix.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), ix.dimensions)
		}
		vec := make([]float32, ix.dimensions)
		copy(vec, vectors[i])
		ix.paths = append(ix.paths, p)
		ix.vectors = append(ix.vectors, vec)
	}
	return nil
}

// Search returns the top-k rows by inner product, descending. Vectors are
// stored normalized, so the score is cosine similarity.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.dimensions)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 || len(ix.paths) == 0 {
		return nil, nil
	}
	results := make([]Result, len(ix.paths))
	for i, vec := range ix.vectors {
		results[i] = Result{Path: ix.paths[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Paths returns the note paths in row order.
func (ix *Index) Paths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.paths))
	copy(out, ix.paths)
	return out
}

// Size returns the number of rows.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.paths)
}

// Save persists the index atomically: the binary image is written to a temp
// file and renamed over path. Format: dimension (u32), row count (u32), then
// per row pathLen (u32), path bytes, vector (dimension float32s), all
// little-endian.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := ix.writeTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (ix *Index) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ix.paths))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, p := range ix.paths {
		pathBytes := []byte(p)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(pathBytes))); err != nil {
			return fmt.Errorf("write path len: %w", err)
		}
		if _, err := w.Write(pathBytes); err != nil {
			return fmt.Errorf("write path: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(ix.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (ix *Index) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != ix.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, ix.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	paths := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, ix.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var pathLen uint32
		if err := binary.Read(f, binary.LittleEndian, &pathLen); err != nil {
			return fmt.Errorf("read path len: %w", err)
		}
		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(f, pathBytes); err != nil {
			return fmt.Errorf("read path: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		paths = append(paths, string(pathBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.paths = paths
	ix.vectors = vectors
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
