package graph

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/tsunagu/internal/embedcache"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/search"
)

// Two tight topic groups plus one note on its own axis.
var testNotes = []models.Note{
	{Path: "alpha/one.md", Content: "alpha notes here"},
	{Path: "alpha/two.md", Content: "alpha again"},
	{Path: "beta/one.md", Content: "beta topic"},
	{Path: "beta/two.md", Content: "beta as well"},
	{Path: "lonely.md", Content: "nothing in common"},
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	dir := t.TempDir()
	manager := embedcache.NewManager(dir, "test-model", embedding.NewTopicEmbedder("alpha", "beta"), nil)
	engine := search.NewEngine(manager, dir, nil)
	result, err := engine.Build(context.Background(), testNotes, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("build failed: %+v", result)
	}
	return NewAnalyzer(engine, nil)
}

func TestSimilarityMatrix(t *testing.T) {
	a := newTestAnalyzer(t)
	paths, matrix := a.SimilarityMatrix(a.engine.Paths())
	if len(paths) != 5 || len(matrix) != 5 {
		t.Fatalf("got %d paths, %d rows", len(paths), len(matrix))
	}
	for i := range matrix {
		if matrix[i][i] != 1.0 {
			t.Errorf("diagonal [%d][%d] = %f", i, i, matrix[i][i])
		}
		for j := range matrix[i] {
			if matrix[i][j] != matrix[j][i] {
				t.Errorf("asymmetric at [%d][%d]", i, j)
			}
		}
	}
}

func TestSimilarityMatrix_DropsUncachedPaths(t *testing.T) {
	a := newTestAnalyzer(t)
	paths, matrix := a.SimilarityMatrix([]string{"alpha/one.md", "ghost.md"})
	if len(paths) != 1 || len(matrix) != 1 {
		t.Errorf("got %d paths, %d rows", len(paths), len(matrix))
	}
}

func TestGraph(t *testing.T) {
	a := newTestAnalyzer(t)
	g := a.Graph(0.9, "")
	if len(g) != 5 {
		t.Fatalf("got %d nodes", len(g))
	}
	if len(g["alpha/one.md"]) != 1 || g["alpha/one.md"][0] != "alpha/two.md" {
		t.Errorf("alpha/one neighbors: %v", g["alpha/one.md"])
	}
	if len(g["lonely.md"]) != 0 {
		t.Errorf("lonely neighbors: %v", g["lonely.md"])
	}
}

func TestGraph_FolderFilter(t *testing.T) {
	a := newTestAnalyzer(t)
	g := a.Graph(0.9, "alpha")
	if len(g) != 2 {
		t.Errorf("got %d nodes: %v", len(g), g)
	}
}

func TestClusters(t *testing.T) {
	a := newTestAnalyzer(t)
	clusters := a.Clusters(0.9, "")
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters: %+v", len(clusters), clusters)
	}
	for _, c := range clusters {
		if c.Size != 2 || len(c.Notes) != 2 {
			t.Errorf("cluster size: %+v", c)
		}
		if c.AvgSimilarity < 0.99 {
			t.Errorf("avg similarity: %f", c.AvgSimilarity)
		}
		if c.Theme != "Notes in alpha" && c.Theme != "Notes in beta" {
			t.Errorf("theme: %q", c.Theme)
		}
	}
}

func TestClusters_ThresholdMonotonic(t *testing.T) {
	a := newTestAnalyzer(t)
	// At an impossible threshold nothing clusters.
	if got := a.Clusters(1.1, ""); got != nil {
		t.Errorf("got %v", got)
	}
	// At a permissive threshold everything merges into one component.
	loose := a.Clusters(-1, "")
	if len(loose) != 1 || loose[0].Size != 5 {
		t.Errorf("loose clusters: %+v", loose)
	}
}

func TestIsolated(t *testing.T) {
	a := newTestAnalyzer(t)
	isolated := a.Isolated(0.9, "")
	// Every note has degree <= 1 in this corpus; the fully disconnected one
	// sorts first.
	if len(isolated) != 5 {
		t.Fatalf("got %d isolated: %+v", len(isolated), isolated)
	}
	if isolated[0].Path != "lonely.md" || isolated[0].NumConnections != 0 {
		t.Errorf("first isolated: %+v", isolated[0])
	}
	for _, iso := range isolated[1:] {
		if iso.NumConnections != 1 {
			t.Errorf("connections for %s: %d", iso.Path, iso.NumConnections)
		}
	}
}

func TestBridges_NeedsTwoClusters(t *testing.T) {
	a := newTestAnalyzer(t)
	// Only the alpha folder: a single cluster, no bridges possible.
	if got := a.Bridges(0.9, "alpha"); got != nil {
		t.Errorf("got %v", got)
	}
	// Components at one threshold never connect across clusters at the same
	// threshold, so a disjoint corpus yields no bridges either.
	if got := a.Bridges(0.9, ""); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestRelatedNotes(t *testing.T) {
	a := newTestAnalyzer(t)
	results, err := a.RelatedNotes(context.Background(), "alpha/one.md", "alpha notes here", 10, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "alpha/two.md" {
		t.Errorf("related: %v", results)
	}
}

func TestFolderReport(t *testing.T) {
	a := newTestAnalyzer(t)
	report := a.FolderReport("alpha", 0.9)
	if report.TotalNotes != 2 {
		t.Errorf("total notes: %d", report.TotalNotes)
	}
	if report.ClusterCount != 1 || report.LargestCluster == nil {
		t.Errorf("clusters: %+v", report)
	}
	if report.TotalConnections != 2 {
		t.Errorf("connections: %d", report.TotalConnections)
	}
	if math.Abs(report.AvgConnections-1.0) > 1e-9 {
		t.Errorf("avg connections: %f", report.AvgConnections)
	}
}

func TestConnectedComponents(t *testing.T) {
	// 0-1 linked, 2 alone.
	matrix := [][]float64{
		{1.0, 0.95, 0.1},
		{0.95, 1.0, 0.2},
		{0.1, 0.2, 1.0},
	}
	comps := connectedComponents(matrix, 0.9)
	if len(comps) != 2 {
		t.Fatalf("got %d components: %v", len(comps), comps)
	}
	if len(comps[0]) != 2 || comps[0][0] != 0 || comps[0][1] != 1 {
		t.Errorf("first component: %v", comps[0])
	}
	if len(comps[1]) != 1 || comps[1][0] != 2 {
		t.Errorf("second component: %v", comps[1])
	}
}

func TestClusterTheme(t *testing.T) {
	if got := clusterTheme([]string{"work/a.md", "work/b.md", "play/c.md"}); got != "Notes in work" {
		t.Errorf("got %q", got)
	}
	if got := clusterTheme([]string{"a.md", "b.md"}); got != "Related notes" {
		t.Errorf("root notes: got %q", got)
	}
}
