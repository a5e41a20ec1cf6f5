// Package models defines core data structures for notes, embeddings, and analysis results.
package models

import "time"

// Note is a single vault note supplied by the collaborating storage layer.
// Path is vault-relative with forward slashes and uniquely identifies the note.
type Note struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// EmbeddingRecord is the cached embedding of one note plus the metadata needed
// to validate and display it. The record is valid for a path iff Hash equals
// the hash of the path's current content.
type EmbeddingRecord struct {
	Vector    []float32 `json:"vector"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	Path       string  `json:"path"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
}

// BuildResult reports the outcome of an index build.
type BuildResult struct {
	Success    bool `json:"success"`
	TotalNotes int  `json:"total_notes"`
	Failed     int  `json:"failed"`
}

// Cluster is a connected component of the similarity graph at some threshold.
type Cluster struct {
	Size          int      `json:"size"`
	Notes         []string `json:"notes"`
	AvgSimilarity float64  `json:"avg_similarity"`
	Theme         string   `json:"theme"`
}

// IsolatedNote is a note with at most one connection in the similarity graph.
type IsolatedNote struct {
	Path           string   `json:"path"`
	Title          string   `json:"title"`
	NumConnections int      `json:"num_connections"`
	ConnectedTo    []string `json:"connected_to"`
}

// BridgeNote is a note whose connections span clusters other than its own.
type BridgeNote struct {
	Path           string `json:"path"`
	Title          string `json:"title"`
	HomeCluster    int    `json:"home_cluster"`
	BridgesTo      []int  `json:"bridges_to"`
	NumConnections int    `json:"num_connections"`
}

// Mention is an unlinked occurrence of another note's title in a note body.
type Mention struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	MentionText string `json:"mention_text"`
	Occurrences int    `json:"occurrences"`
	Context     string `json:"context"`
}

// Reasons attached to link suggestions.
const (
	ReasonUnlinkedMention    = "unlinked_mention"
	ReasonSemanticSimilarity = "semantic_similarity"
)

// LinkSuggestion is a ranked candidate link for a note.
type LinkSuggestion struct {
	Target      string  `json:"target"`
	Title       string  `json:"title"`
	Reason      string  `json:"reason"`
	Similarity  float64 `json:"similarity"`
	Context     string  `json:"context"`
	MentionText string  `json:"mention_text,omitempty"`
}

// ImprovementCandidate is a poorly connected note worth linking up.
type ImprovementCandidate struct {
	Path               string `json:"path"`
	CurrentConnections int    `json:"current_connections"`
	Recommendation     string `json:"recommendation"`
}

// ConnectivityReport is an aggregate health view of the vault's similarity graph.
type ConnectivityReport struct {
	TotalNotes            int                    `json:"total_notes"`
	TotalConnections      int                    `json:"total_connections"`
	AvgConnectionsPerNote float64                `json:"avg_connections_per_note"`
	IsolatedNotes         int                    `json:"isolated_notes"`
	ImprovementCandidates []ImprovementCandidate `json:"improvement_candidates"`
	Recommendations       []string               `json:"recommendations"`
}

// CacheStats describes the embedding cache.
type CacheStats struct {
	TotalNotes  int       `json:"total_notes"`
	Model       string    `json:"model"`
	Dimension   int       `json:"dimension"`
	CacheFile   string    `json:"cache_file"`
	LastUpdated time.Time `json:"last_updated"`
}

// IndexStats describes the vector index.
type IndexStats struct {
	Indexed     bool      `json:"indexed"`
	TotalNotes  int       `json:"total_notes"`
	Dimension   int       `json:"dimension"`
	Model       string    `json:"model"`
	LastRebuild time.Time `json:"last_rebuild"`
	IndexFile   string    `json:"index_file"`
}

// FolderReport is a combined relationship analysis for one folder.
type FolderReport struct {
	Folder           string   `json:"folder"`
	TotalNotes       int      `json:"total_notes"`
	ClusterCount     int      `json:"cluster_count"`
	LargestCluster   *Cluster `json:"largest_cluster,omitempty"`
	BridgeNotes      int      `json:"bridge_notes"`
	IsolatedNotes    int      `json:"isolated_notes"`
	TotalConnections int      `json:"total_connections"`
	AvgConnections   float64  `json:"avg_connections_per_note"`
	MinSimilarity    float64  `json:"min_similarity"`
}
