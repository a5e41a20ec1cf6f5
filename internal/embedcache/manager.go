// Package embedcache manages durable note embeddings: generation, hashing,
// invalidation, and the file-backed cache shared by the index and analyzers.
package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/tsunagu/internal/checksum"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/parser"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

// CacheFileName is the embeddings cache artifact under the cache root.
const CacheFileName = "embeddings-cache.json"

// queryCacheSize bounds the in-process LRU for repeated query texts.
const queryCacheSize = 1024

// Cache is the persisted embeddings cache. Vectors from different models are
// never mixed; a model change discards the cache wholesale.
type Cache struct {
	Model       string                             `json:"model"`
	Dimension   int                                `json:"dimension"`
	Notes       map[string]*models.EmbeddingRecord `json:"notes"`
	LastUpdated time.Time                          `json:"last_updated"`
}

// BatchResult is the per-note outcome of a batch embedding run.
type BatchResult struct {
	Path   string
	Record *models.EmbeddingRecord
	Err    error
}

// Valid reports whether the result carries a usable vector.
func (r *BatchResult) Valid() bool {
	return r.Err == nil && r.Record != nil && len(r.Record.Vector) > 0
}

// Manager turns note content into normalized embedding vectors, memoized by
// content hash and persisted under the cache root.
type Manager struct {
	cacheDir string
	modelID  string
	embedder embedding.Embedder
	queries  *embedding.EmbeddingCache
	logger   *zap.Logger
	cache    *Cache
}

// NewManager creates a cache manager. The embedder is typically an
// embedding.Lazy so the model loads on first real use. logger may be nil.
func NewManager(cacheDir, modelID string, embedder embedding.Embedder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cacheDir: cacheDir,
		modelID:  modelID,
		embedder: embedder,
		queries:  embedding.NewEmbeddingCache(queryCacheSize),
		logger:   logger,
	}
}

// CacheFile returns the path of the persisted cache artifact.
func (m *Manager) CacheFile() string {
	return filepath.Join(m.cacheDir, CacheFileName)
}

// Model returns the active embedding model identifier.
func (m *Manager) Model() string {
	return m.modelID
}

// Dimensions returns the embedding dimension of the active model.
func (m *Manager) Dimensions() int {
	return m.embedder.Dimensions()
}

// Embed returns the normalized embedding for text. Blank text yields the zero
// vector without touching the model.
func (m *Manager) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, m.Dimensions()), nil
	}
	if cached, ok := m.queries.Get(text); ok {
		return cached, nil
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	utils.NormalizeL2(vec)
	m.queries.Set(text, vec)
	return vec, nil
}

// EmbedNote builds the contextual text for a note (title, tags, cleaned body)
// and embeds it, stamping hash, timestamp, title, and tags.
func (m *Manager) EmbedNote(ctx context.Context, path, content string) (*models.EmbeddingRecord, error) {
	fm, body := parser.Parse(content)
	title := parser.Title(fm, path)
	tags := parser.Tags(fm)
	clean := parser.CleanMarkdown(body)

	tagParts := make([]string, len(tags))
	for i, tag := range tags {
		tagParts[i] = "#" + tag
	}
	// Title and tags materially shift retrieval quality; always embedded.
	contextual := title + "\n\n" + strings.Join(tagParts, " ") + "\n\n" + clean

	vec, err := m.Embed(ctx, contextual)
	if err != nil {
		return nil, fmt.Errorf("embed note %s: %w", path, err)
	}
	if tags == nil {
		tags = []string{}
	}
	return &models.EmbeddingRecord{
		Vector:    vec,
		Hash:      checksum.Short([]byte(content)),
		Timestamp: time.Now(),
		Title:     title,
		Tags:      tags,
	}, nil
}

// GetOrUpdate returns the note's vector, re-embedding only when the content
// hash no longer matches the cached record (or force is set). A regenerated
// record is persisted before returning; a failed save fails the call.
func (m *Manager) GetOrUpdate(ctx context.Context, path, content string, force bool) ([]float32, error) {
	hash := checksum.Short([]byte(content))
	if !force {
		if vec, ok := m.cachedVector(path, hash); ok {
			m.logger.Debug("embedding cache hit", zap.String("path", path))
			return vec, nil
		}
	}

	m.logger.Debug("embedding cache miss", zap.String("path", path))
	rec, err := m.EmbedNote(ctx, path, content)
	if err != nil {
		return nil, err
	}
	cache := m.load()
	cache.Notes[path] = rec
	if err := m.Save(); err != nil {
		return nil, err
	}
	return rec.Vector, nil
}

// BatchEmbed embeds many notes, reusing cached vectors unless force is set.
// A single note's failure is captured in its BatchResult and does not abort
// the batch. The cache is persisted once at the end; a failed save is
// returned alongside the results.
func (m *Manager) BatchEmbed(ctx context.Context, notes []models.Note, force bool) ([]BatchResult, error) {
	cache := m.load()
	results := make([]BatchResult, 0, len(notes))
	updated := false

	for _, note := range notes {
		hash := checksum.Short([]byte(note.Content))
		if !force {
			if rec, ok := cache.Notes[note.Path]; ok && rec.Hash == hash && len(rec.Vector) > 0 {
				results = append(results, BatchResult{Path: note.Path, Record: rec})
				continue
			}
		}
		rec, err := m.EmbedNote(ctx, note.Path, note.Content)
		if err != nil {
			m.logger.Warn("batch embed failed", zap.String("path", note.Path), zap.Error(err))
			results = append(results, BatchResult{Path: note.Path, Err: err})
			continue
		}
		cache.Notes[note.Path] = rec
		updated = true
		results = append(results, BatchResult{Path: note.Path, Record: rec})
	}

	if updated {
		if err := m.Save(); err != nil {
			return results, err
		}
	}
	return results, nil
}

// Record returns the cached record for path, if any.
func (m *Manager) Record(path string) (*models.EmbeddingRecord, bool) {
	rec, ok := m.load().Notes[path]
	return rec, ok
}

// Vectors returns cached vectors for the given paths. Paths without a cached
// vector are silently dropped; the returned path slice is aligned with the
// returned vectors.
func (m *Manager) Vectors(paths []string) ([]string, [][]float32) {
	cache := m.load()
	kept := make([]string, 0, len(paths))
	vecs := make([][]float32, 0, len(paths))
	for _, p := range paths {
		if rec, ok := cache.Notes[p]; ok && len(rec.Vector) > 0 {
			kept = append(kept, p)
			vecs = append(vecs, rec.Vector)
		}
	}
	return kept, vecs
}

// Clear empties the cache and persists the empty state.
func (m *Manager) Clear() error {
	m.cache = m.emptyCache()
	return m.Save()
}

// Remove deletes a single note's record and persists, if it was present.
func (m *Manager) Remove(path string) error {
	cache := m.load()
	if _, ok := cache.Notes[path]; !ok {
		return nil
	}
	delete(cache.Notes, path)
	return m.Save()
}

// Stats summarizes the cache state.
func (m *Manager) Stats() models.CacheStats {
	cache := m.load()
	return models.CacheStats{
		TotalNotes:  len(cache.Notes),
		Model:       cache.Model,
		Dimension:   cache.Dimension,
		CacheFile:   m.CacheFile(),
		LastUpdated: cache.LastUpdated,
	}
}

// Save writes the cache atomically: marshal to a temp file in the cache root,
// then rename over the live file. A crash never yields a half-written cache.
func (m *Manager) Save() error {
	if m.cache == nil {
		m.logger.Warn("no embedding cache to save")
		return nil
	}
	m.cache.LastUpdated = time.Now()

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(m.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal embedding cache: %w", err)
	}
	tmp := m.CacheFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	if err := os.Rename(tmp, m.CacheFile()); err != nil {
		return fmt.Errorf("replace embedding cache: %w", err)
	}
	m.logger.Debug("embedding cache saved", zap.Int("notes", len(m.cache.Notes)))
	return nil
}

func (m *Manager) cachedVector(path, hash string) ([]float32, bool) {
	rec, ok := m.load().Notes[path]
	if !ok || rec.Hash != hash || len(rec.Vector) == 0 {
		return nil, false
	}
	return rec.Vector, true
}

// load returns the in-memory cache, reading it from disk on first access.
// A missing, corrupt, or model-mismatched file falls back to an empty cache;
// this is never an error for the caller.
func (m *Manager) load() *Cache {
	if m.cache != nil {
		return m.cache
	}

	data, err := os.ReadFile(m.CacheFile())
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read embedding cache", zap.Error(err))
		}
		m.cache = m.emptyCache()
		return m.cache
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		m.logger.Warn("corrupt embedding cache, rebuilding", zap.Error(err))
		m.cache = m.emptyCache()
		return m.cache
	}
	if cache.Model != m.modelID {
		m.logger.Warn("embedding model changed, cache will be rebuilt",
			zap.String("cached_model", cache.Model),
			zap.String("active_model", m.modelID),
		)
		m.cache = m.emptyCache()
		return m.cache
	}
	if cache.Notes == nil {
		cache.Notes = make(map[string]*models.EmbeddingRecord)
	}
	m.cache = &cache
	m.logger.Debug("embedding cache loaded", zap.Int("notes", len(cache.Notes)))
	return m.cache
}

func (m *Manager) emptyCache() *Cache {
	return &Cache{
		Model:     m.modelID,
		Dimension: m.Dimensions(),
		Notes:     make(map[string]*models.EmbeddingRecord),
	}
}
