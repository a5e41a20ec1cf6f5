// Package graph derives relationship structures (similarity graphs, clusters,
// bridges, isolated notes) from the semantic index.
package graph

import (
	"context"
	"math"
	"path"
	"sort"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

// Analyzer computes threshold-parameterized views over the indexed vectors.
// Nothing here is persisted; every call derives its result from the current
// cache and index state.
type Analyzer struct {
	engine *search.Engine
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer over the given search engine. logger may be nil.
func NewAnalyzer(engine *search.Engine, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{engine: engine, logger: logger}
}

// Engine returns the underlying search engine.
func (a *Analyzer) Engine() *search.Engine {
	return a.engine
}

// SimilarityMatrix gathers cached vectors for the given paths and computes
// the full pairwise cosine-similarity matrix. Paths without a cached vector
// are dropped; the returned path slice is aligned with the matrix rows, so
// callers must not assume length preservation.
func (a *Analyzer) SimilarityMatrix(paths []string) ([]string, [][]float64) {
	kept, vecs := a.engine.Manager().Vectors(paths)
	if len(kept) == 0 {
		return nil, nil
	}

	normalized := make([][]float32, len(vecs))
	for i, v := range vecs {
		nv := make([]float32, len(v))
		copy(nv, v)
		utils.NormalizeL2(nv)
		normalized[i] = nv
	}

	n := len(normalized)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := vector.InnerProduct(normalized[i], normalized[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return kept, matrix
}

// Graph returns the similarity adjacency map over all indexed paths
// (optionally folder-filtered): for each path, the other paths whose
// similarity meets the threshold.
func (a *Analyzer) Graph(minSimilarity float64, folder string) map[string][]string {
	paths, matrix := a.SimilarityMatrix(a.engine.PathsIn(folder))
	if len(paths) == 0 {
		return map[string][]string{}
	}

	graph := make(map[string][]string, len(paths))
	for i, p := range paths {
		var related []string
		for j, other := range paths {
			if i != j && matrix[i][j] >= minSimilarity {
				related = append(related, other)
			}
		}
		graph[p] = related
	}
	return graph
}

// Clusters finds connected components of the thresholded similarity graph.
// Singleton components are dropped. Each cluster reports its members, mean
// pairwise similarity, and a theme from the most common containing folder.
// Clusters are ordered by descending size.
func (a *Analyzer) Clusters(minSimilarity float64, folder string) []models.Cluster {
	paths, matrix := a.SimilarityMatrix(a.engine.PathsIn(folder))
	if len(paths) == 0 {
		return nil
	}
	a.logger.Debug("analyzing clusters", zap.Int("notes", len(paths)), zap.Float64("min_similarity", minSimilarity))

	components := connectedComponents(matrix, minSimilarity)

	var clusters []models.Cluster
	for _, comp := range components {
		if len(comp) < 2 {
			continue
		}
		members := make([]string, len(comp))
		for i, idx := range comp {
			members[i] = paths[idx]
		}

		var total float64
		var pairs int
		for i := 0; i < len(comp); i++ {
			for j := i + 1; j < len(comp); j++ {
				total += matrix[comp[i]][comp[j]]
				pairs++
			}
		}
		avg := 0.0
		if pairs > 0 {
			avg = total / float64(pairs)
		}

		clusters = append(clusters, models.Cluster{
			Size:          len(members),
			Notes:         members,
			AvgSimilarity: avg,
			Theme:         clusterTheme(members),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].Size > clusters[j].Size })
	a.logger.Debug("clusters found", zap.Int("count", len(clusters)))
	return clusters
}

// Isolated returns notes with at most one connection at the threshold,
// most isolated first.
func (a *Analyzer) Isolated(minSimilarity float64, folder string) []models.IsolatedNote {
	graph := a.Graph(minSimilarity, folder)

	var isolated []models.IsolatedNote
	for p, connections := range graph {
		if len(connections) <= 1 {
			isolated = append(isolated, models.IsolatedNote{
				Path:           p,
				Title:          a.engine.Title(p),
				NumConnections: len(connections),
				ConnectedTo:    connections,
			})
		}
	}
	sort.SliceStable(isolated, func(i, j int) bool {
		if isolated[i].NumConnections != isolated[j].NumConnections {
			return isolated[i].NumConnections < isolated[j].NumConnections
		}
		return isolated[i].Path < isolated[j].Path
	})
	return isolated
}

// Bridges returns clustered notes whose graph neighbors fall in a different
// cluster, connecting their home cluster to each such other cluster. Needs at
// least two clusters to produce any result. Sorted by number of clusters
// bridged, descending.
func (a *Analyzer) Bridges(minSimilarity float64, folder string) []models.BridgeNote {
	clusters := a.Clusters(minSimilarity, folder)
	if len(clusters) < 2 {
		return nil
	}

	clusterOf := make(map[string]int)
	for i, cluster := range clusters {
		for _, note := range cluster.Notes {
			clusterOf[note] = i
		}
	}

	graph := a.Graph(minSimilarity, folder)

	var bridges []models.BridgeNote
	for note, connections := range graph {
		home, ok := clusterOf[note]
		if !ok || len(connections) == 0 {
			continue
		}
		seen := make(map[int]struct{})
		var others []int
		for _, neighbor := range connections {
			if other, ok := clusterOf[neighbor]; ok && other != home {
				if _, dup := seen[other]; !dup {
					seen[other] = struct{}{}
					others = append(others, other)
				}
			}
		}
		if len(others) == 0 {
			continue
		}
		sort.Ints(others)
		bridges = append(bridges, models.BridgeNote{
			Path:           note,
			Title:          a.engine.Title(note),
			HomeCluster:    home,
			BridgesTo:      others,
			NumConnections: len(connections),
		})
	}

	sort.SliceStable(bridges, func(i, j int) bool {
		if len(bridges[i].BridgesTo) != len(bridges[j].BridgesTo) {
			return len(bridges[i].BridgesTo) > len(bridges[j].BridgesTo)
		}
		return bridges[i].Path < bridges[j].Path
	})
	a.logger.Debug("bridges found", zap.Int("count", len(bridges)))
	return bridges
}

// RelatedNotes finds notes similar to the given note via the index.
func (a *Analyzer) RelatedNotes(ctx context.Context, notePath, content string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	return a.engine.SearchByNote(ctx, notePath, content, topK, minSimilarity)
}

// FolderReport aggregates cluster, bridge, isolation, and connectivity
// numbers for one folder.
func (a *Analyzer) FolderReport(folder string, minSimilarity float64) models.FolderReport {
	report := models.FolderReport{
		Folder:        folder,
		TotalNotes:    len(a.engine.PathsIn(folder)),
		MinSimilarity: minSimilarity,
	}

	clusters := a.Clusters(minSimilarity, folder)
	report.ClusterCount = len(clusters)
	if len(clusters) > 0 {
		largest := clusters[0]
		report.LargestCluster = &largest
	}
	report.BridgeNotes = len(a.Bridges(minSimilarity, folder))
	report.IsolatedNotes = len(a.Isolated(minSimilarity, folder))

	graph := a.Graph(minSimilarity, folder)
	for _, connections := range graph {
		report.TotalConnections += len(connections)
	}
	if len(graph) > 0 {
		report.AvgConnections = round2(float64(report.TotalConnections) / float64(len(graph)))
	}
	return report
}

// connectedComponents finds components of the thresholded adjacency via
// depth-first traversal with an explicit stack, so deep components cannot
// exhaust the goroutine stack.
func connectedComponents(matrix [][]float64, minSimilarity float64) [][]int {
	n := len(matrix)
	visited := make([]bool, n)
	var components [][]int

	stack := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var component []int
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, node)
			for neighbor := 0; neighbor < n; neighbor++ {
				if neighbor != node && !visited[neighbor] && matrix[node][neighbor] >= minSimilarity {
					visited[neighbor] = true
					stack = append(stack, neighbor)
				}
			}
		}
		sort.Ints(component)
		components = append(components, component)
	}
	return components
}

// clusterTheme labels a cluster by the most common containing folder.
func clusterTheme(paths []string) string {
	counts := make(map[string]int)
	for _, p := range paths {
		counts[path.Dir(p)]++
	}
	best := ""
	bestCount := 0
	for folder, count := range counts {
		if count > bestCount || (count == bestCount && folder < best) {
			best = folder
			bestCount = count
		}
	}
	if best == "" || best == "." {
		return "Related notes"
	}
	return "Notes in " + path.Base(best)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
