// Package search provides the semantic search engine: a persistent vector
// index over note embeddings with aligned path metadata.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/tsunagu/internal/embedcache"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/parser"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

// Index artifacts under the cache root. They are persisted and loaded
// together; a rebuild replaces both wholesale.
const (
	IndexFileName    = "vector-index.bin"
	MetadataFileName = "index-metadata.json"
)

// folderCandidateFactor oversamples candidates when a folder filter is
// active, since filtering happens after retrieval.
const folderCandidateFactor = 3

// Metadata maps index rows back to note paths: NotePaths[i] is the path whose
// vector occupies row i.
type Metadata struct {
	TotalNotes  int       `json:"total_notes"`
	NotePaths   []string  `json:"note_paths"`
	Dimension   int       `json:"dimension"`
	Model       string    `json:"model"`
	LastRebuild time.Time `json:"last_rebuild"`
}

// Engine owns the vector index and its metadata. State is loaded lazily on
// first use and replaced wholesale by Build.
type Engine struct {
	manager  *embedcache.Manager
	cacheDir string
	logger   *zap.Logger

	index *vector.Index
	meta  *Metadata
}

// NewEngine creates a search engine over the given cache manager. Persisted
// index state is read lazily from cacheDir. logger may be nil.
func NewEngine(manager *embedcache.Manager, cacheDir string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{manager: manager, cacheDir: cacheDir, logger: logger}
}

// Manager returns the embedding cache manager backing this engine.
func (e *Engine) Manager() *embedcache.Manager {
	return e.manager
}

// IndexFile returns the path of the persisted vector index.
func (e *Engine) IndexFile() string {
	return filepath.Join(e.cacheDir, IndexFileName)
}

// MetadataFile returns the path of the persisted index metadata.
func (e *Engine) MetadataFile() string {
	return filepath.Join(e.cacheDir, MetadataFileName)
}

// Build rebuilds the index from the given corpus snapshot. Vectors come from
// the cache manager (cache hits are reused unless force); notes that fail to
// embed are dropped. Zero valid vectors is a reported failure, not a partial
// index. The new index and metadata replace the old ones in memory and on
// disk only after a fully successful build.
func (e *Engine) Build(ctx context.Context, notes []models.Note, force bool) (*models.BuildResult, error) {
	e.logger.Info("building index", zap.Int("notes", len(notes)), zap.Bool("force", force))

	results, err := e.manager.BatchEmbed(ctx, notes, force)
	if err != nil {
		return nil, fmt.Errorf("batch embed: %w", err)
	}

	valid := results[:0:0]
	for _, r := range results {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	failed := len(results) - len(valid)

	if len(valid) == 0 {
		e.logger.Error("no valid embeddings generated")
		return &models.BuildResult{Success: false, Failed: failed}, nil
	}

	idx, err := vector.New(e.manager.Dimensions())
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(valid))
	vecs := make([][]float32, len(valid))
	for i, r := range valid {
		paths[i] = r.Path
		vecs[i] = r.Record.Vector
	}
	if err := idx.Add(paths, vecs); err != nil {
		return nil, fmt.Errorf("assemble index: %w", err)
	}

	meta := &Metadata{
		TotalNotes:  len(paths),
		NotePaths:   paths,
		Dimension:   e.manager.Dimensions(),
		Model:       e.manager.Model(),
		LastRebuild: time.Now(),
	}

	if err := idx.Save(e.IndexFile()); err != nil {
		return nil, err
	}
	if err := e.saveMetadata(meta); err != nil {
		return nil, err
	}

	e.index = idx
	e.meta = meta
	e.logger.Info("index built", zap.Int("total_notes", meta.TotalNotes), zap.Int("failed", failed))
	return &models.BuildResult{Success: true, TotalNotes: meta.TotalNotes, Failed: failed}, nil
}

// Search embeds the query and returns up to topK notes with similarity at or
// above minSimilarity, descending. A non-empty folder restricts results to
// paths under that folder. An empty index yields an empty result, never an
// error.
func (e *Engine) Search(ctx context.Context, query string, topK int, minSimilarity float64, folder string) ([]models.SearchResult, error) {
	e.ensureLoaded()
	if e.meta.TotalNotes == 0 {
		e.logger.Warn("index is empty, build it first")
		return nil, nil
	}

	e.logger.Debug("searching", zap.String("query", utils.Truncate(query, 80)), zap.Int("top_k", topK))
	vec, err := e.manager.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchK := topK
	if folder != "" {
		searchK = topK * folderCandidateFactor
	}
	hits, err := e.index.Search(ctx, vec, searchK)
	if err != nil {
		return nil, err
	}
	return e.collect(hits, topK, minSimilarity, folder, ""), nil
}

// SearchByVector ranks notes against a raw vector, optionally excluding one
// path (one extra candidate is fetched to compensate).
func (e *Engine) SearchByVector(ctx context.Context, vec []float32, topK int, minSimilarity float64, exclude string) ([]models.SearchResult, error) {
	e.ensureLoaded()
	if e.meta.TotalNotes == 0 {
		return nil, nil
	}

	query := make([]float32, len(vec))
	copy(query, vec)
	utils.NormalizeL2(query)

	searchK := topK
	if exclude != "" {
		searchK++
	}
	hits, err := e.index.Search(ctx, query, searchK)
	if err != nil {
		return nil, err
	}
	return e.collect(hits, topK, minSimilarity, "", exclude), nil
}

// SearchByNote finds notes similar to the given note, refreshing its cached
// vector first and excluding the note itself from the results.
func (e *Engine) SearchByNote(ctx context.Context, path, content string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	vec, err := e.manager.GetOrUpdate(ctx, path, content, false)
	if err != nil {
		return nil, err
	}
	return e.SearchByVector(ctx, vec, topK, minSimilarity, path)
}

// Paths returns the indexed note paths in row order.
func (e *Engine) Paths() []string {
	e.ensureLoaded()
	out := make([]string, len(e.meta.NotePaths))
	copy(out, e.meta.NotePaths)
	return out
}

// PathsIn returns indexed paths under folder (all paths when folder is empty).
func (e *Engine) PathsIn(folder string) []string {
	var out []string
	for _, p := range e.Paths() {
		if MatchesFolder(p, folder) {
			out = append(out, p)
		}
	}
	return out
}

// Stats summarizes the index state.
func (e *Engine) Stats() models.IndexStats {
	e.ensureLoaded()
	return models.IndexStats{
		Indexed:     e.meta.TotalNotes > 0,
		TotalNotes:  e.meta.TotalNotes,
		Dimension:   e.meta.Dimension,
		Model:       e.meta.Model,
		LastRebuild: e.meta.LastRebuild,
		IndexFile:   e.IndexFile(),
	}
}

// Title returns the display title for an indexed path, preferring the cached
// embedding record.
func (e *Engine) Title(path string) string {
	if rec, ok := e.manager.Record(path); ok && rec.Title != "" {
		return rec.Title
	}
	return parser.Stem(path)
}

// MatchesFolder reports whether path lies under folder. A trailing slash on
// folder is ignored; matching is by whole path segment, so "work/notes/a.md"
// is under "work" but "work-other/a.md" is not. Empty folder matches all.
func MatchesFolder(path, folder string) bool {
	if folder == "" {
		return true
	}
	folder = strings.TrimSuffix(folder, "/")
	return path == folder || strings.HasPrefix(path, folder+"/")
}

func (e *Engine) collect(hits []vector.Result, topK int, minSimilarity float64, folder, exclude string) []models.SearchResult {
	var results []models.SearchResult
	for _, hit := range hits {
		if hit.Score < minSimilarity {
			continue
		}
		if exclude != "" && hit.Path == exclude {
			continue
		}
		if !MatchesFolder(hit.Path, folder) {
			continue
		}
		results = append(results, models.SearchResult{
			Path:       hit.Path,
			Similarity: hit.Score,
			Title:      e.Title(hit.Path),
		})
		if len(results) >= topK {
			break
		}
	}
	return results
}

// ensureLoaded reads the persisted index and metadata on first access. A
// missing, corrupt, or model-mismatched artifact pair falls back to an empty
// index; queries against it return empty results.
func (e *Engine) ensureLoaded() {
	if e.index != nil {
		return
	}

	dims := e.manager.Dimensions()
	empty := func() {
		e.index, _ = vector.New(dims)
		e.meta = &Metadata{Dimension: dims, Model: e.manager.Model()}
	}

	meta, err := e.loadMetadata()
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("failed to load index metadata, starting empty", zap.Error(err))
		}
		empty()
		return
	}
	if meta.Model != e.manager.Model() {
		e.logger.Warn("index built with different model, starting empty",
			zap.String("index_model", meta.Model),
			zap.String("active_model", e.manager.Model()),
		)
		empty()
		return
	}
	if meta.Dimension != dims {
		e.logger.Warn("index dimension mismatch, starting empty",
			zap.Int("index_dimension", meta.Dimension),
			zap.Int("model_dimension", dims),
		)
		empty()
		return
	}

	idx, err := vector.New(dims)
	if err != nil {
		empty()
		return
	}
	if err := idx.Load(e.IndexFile()); err != nil {
		e.logger.Warn("failed to load vector index, starting empty", zap.Error(err))
		empty()
		return
	}
	if !aligned(idx.Paths(), meta.NotePaths) || idx.Size() != meta.TotalNotes {
		e.logger.Warn("index and metadata out of alignment, starting empty",
			zap.Int("index_rows", idx.Size()),
			zap.Int("metadata_notes", meta.TotalNotes),
		)
		empty()
		return
	}

	e.index = idx
	e.meta = meta
	e.logger.Info("index loaded", zap.Int("total_notes", meta.TotalNotes))
}

func aligned(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *Engine) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(e.MetadataFile())
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse index metadata: %w", err)
	}
	return &meta, nil
}

func (e *Engine) saveMetadata(meta *Metadata) error {
	if err := os.MkdirAll(e.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	tmp := e.MetadataFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	if err := os.Rename(tmp, e.MetadataFile()); err != nil {
		return fmt.Errorf("replace index metadata: %w", err)
	}
	return nil
}
