// Package links suggests connections between notes, combining lexical
// mention detection with semantic similarity.
package links

import (
	"context"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/tsunagu/internal/graph"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/parser"
	"go.uber.org/zap"
)

// contextWindow is how many characters of surrounding text a mention context
// includes on each side.
const contextWindow = 100

// improvementCandidateLimit caps how many isolated notes a connectivity
// report calls out.
const improvementCandidateLimit = 10

// Suggester produces ranked link candidates for notes.
type Suggester struct {
	analyzer *graph.Analyzer
	logger   *zap.Logger
}

// NewSuggester creates a link suggester over the given analyzer. logger may be nil.
func NewSuggester(analyzer *graph.Analyzer, logger *zap.Logger) *Suggester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suggester{analyzer: analyzer, logger: logger}
}

// UnlinkedMentions scans the note body for whole-word, case-insensitive
// occurrences of every other indexed note's title that is not already linked,
// ranked by occurrence count. Each mention carries a snippet around its first
// occurrence.
func (s *Suggester) UnlinkedMentions(notePath, content string) []models.Mention {
	engine := s.analyzer.Engine()
	existing := parser.ExtractWikiLinks(content)
	_, body := parser.Parse(content)

	var mentions []models.Mention
	for _, other := range engine.Paths() {
		if other == notePath {
			continue
		}
		title := parser.Stem(other)
		if title == "" {
			continue
		}
		if alreadyLinked(existing, other, title) {
			continue
		}

		re, err := mentionPattern(title)
		if err != nil {
			continue
		}
		locs := re.FindAllStringIndex(body, -1)
		if len(locs) == 0 {
			continue
		}

		first := locs[0]
		mentions = append(mentions, models.Mention{
			Path:        other,
			Title:       title,
			MentionText: body[first[0]:first[1]],
			Occurrences: len(locs),
			Context:     surrounding(body, first[0], first[1]),
		})
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		if mentions[i].Occurrences != mentions[j].Occurrences {
			return mentions[i].Occurrences > mentions[j].Occurrences
		}
		return mentions[i].Path < mentions[j].Path
	})
	s.logger.Debug("unlinked mentions found", zap.String("path", notePath), zap.Int("count", len(mentions)))
	return mentions
}

// SuggestLinks merges mention candidates (always ranked first) with semantic
// similarity candidates for the note, deduplicated by target, existing links
// filtered when checkExisting, truncated to maxSuggestions.
func (s *Suggester) SuggestLinks(ctx context.Context, notePath, content string, maxSuggestions int, minSimilarity float64, checkExisting bool) ([]models.LinkSuggestion, error) {
	var existing map[string]struct{}
	if checkExisting {
		existing = parser.ExtractWikiLinks(content)
	}

	related, err := s.analyzer.RelatedNotes(ctx, notePath, content, maxSuggestions*2, minSimilarity)
	if err != nil {
		return nil, err
	}

	var suggestions []models.LinkSuggestion
	taken := make(map[string]struct{})

	for _, mention := range s.UnlinkedMentions(notePath, content) {
		if len(suggestions) >= maxSuggestions {
			break
		}
		suggestions = append(suggestions, models.LinkSuggestion{
			Target:      mention.Path,
			Title:       mention.Title,
			Reason:      models.ReasonUnlinkedMention,
			Context:     mention.Context,
			MentionText: mention.MentionText,
		})
		taken[mention.Path] = struct{}{}
	}

	for _, note := range related {
		if len(suggestions) >= maxSuggestions {
			break
		}
		if _, dup := taken[note.Path]; dup {
			continue
		}
		if checkExisting && alreadyLinked(existing, note.Path, note.Title) {
			continue
		}
		suggestions = append(suggestions, models.LinkSuggestion{
			Target:     note.Path,
			Title:      note.Title,
			Reason:     models.ReasonSemanticSimilarity,
			Similarity: note.Similarity,
			Context:    suggestionContext(note.Path, note.Similarity),
		})
		taken[note.Path] = struct{}{}
	}

	s.logger.Debug("link suggestions generated", zap.String("path", notePath), zap.Int("count", len(suggestions)))
	return suggestions, nil
}

// Bidirectional returns highly similar notes that are candidates for
// reciprocal linking, at a stricter threshold than ordinary suggestions.
func (s *Suggester) Bidirectional(ctx context.Context, notePath, content string, minSimilarity float64) ([]models.LinkSuggestion, error) {
	related, err := s.analyzer.RelatedNotes(ctx, notePath, content, 20, minSimilarity)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.LinkSuggestion, 0, len(related))
	for _, note := range related {
		suggestions = append(suggestions, models.LinkSuggestion{
			Target:     note.Path,
			Title:      note.Title,
			Reason:     models.ReasonSemanticSimilarity,
			Similarity: note.Similarity,
			Context:    "Candidate for a link in both directions with " + parser.Stem(notePath),
		})
	}
	return suggestions, nil
}

// ConnectivityReport aggregates graph health for the whole vault and lists
// the notes that would benefit most from new links.
func (s *Suggester) ConnectivityReport(minSimilarity float64) models.ConnectivityReport {
	g := s.analyzer.Graph(minSimilarity, "")
	isolated := s.analyzer.Isolated(minSimilarity, "")

	totalConnections := 0
	for _, connections := range g {
		totalConnections += len(connections)
	}
	avg := 0.0
	if len(g) > 0 {
		avg = math.Round(float64(totalConnections)/float64(len(g))*100) / 100
	}

	candidates := make([]models.ImprovementCandidate, 0, improvementCandidateLimit)
	for _, note := range isolated {
		if len(candidates) >= improvementCandidateLimit {
			break
		}
		candidates = append(candidates, models.ImprovementCandidate{
			Path:               note.Path,
			CurrentConnections: note.NumConnections,
			Recommendation:     "Find related notes and add links",
		})
	}

	return models.ConnectivityReport{
		TotalNotes:            len(g),
		TotalConnections:      totalConnections,
		AvgConnectionsPerNote: avg,
		IsolatedNotes:         len(isolated),
		ImprovementCandidates: candidates,
		Recommendations: []string{
			"Add links to isolated notes to improve discoverability",
			"Consider bidirectional links for closely related notes",
			"Review unlinked mentions and convert to links",
		},
	}
}

// alreadyLinked reports whether an explicit link to the target exists,
// matching link text against the target's title or full path.
func alreadyLinked(existing map[string]struct{}, targetPath, title string) bool {
	if existing == nil {
		return false
	}
	if _, ok := existing[title]; ok {
		return true
	}
	if _, ok := existing[targetPath]; ok {
		return true
	}
	// Links sometimes carry the path without extension.
	trimmed := strings.TrimSuffix(targetPath, path.Ext(targetPath))
	_, ok := existing[trimmed]
	return ok
}

// mentionPattern compiles a whole-word, case-insensitive pattern for a title.
func mentionPattern(title string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(title) + `\b`)
}

// surrounding extracts a bounded window around a match, with ellipsis markers
// when truncated.
func surrounding(text string, start, end int) string {
	ctxStart := start - contextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextWindow
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	out := strings.TrimSpace(text[ctxStart:ctxEnd])
	if ctxStart > 0 {
		out = "..." + out
	}
	if ctxEnd < len(text) {
		out = out + "..."
	}
	return out
}

// suggestionContext describes a semantic suggestion by strength and location.
func suggestionContext(targetPath string, similarity float64) string {
	folder := path.Base(path.Dir(targetPath))
	if folder == "." || folder == "/" {
		folder = "the vault root"
	}
	switch {
	case similarity > 0.9:
		return "Very closely related note in " + folder
	case similarity > 0.8:
		return "Closely related note in " + folder
	case similarity > 0.7:
		return "Related note in " + folder
	default:
		return "Potentially related note in " + folder
	}
}
