package embedding

import (
	"context"
	"strings"

	"github.com/hyperjump/tsunagu/pkg/utils"
)

// TopicEmbedder is a test embedder with transparent geometry: each configured
// topic keyword owns one axis, and a text's vector is the normalized sum of
// the axes whose keyword it contains. Texts with no keyword share a final
// catch-all axis. Similarity between texts is then fully predictable.
type TopicEmbedder struct {
	topics []string
}

// NewTopicEmbedder creates a topic embedder. Dimensions is len(topics)+1.
func NewTopicEmbedder(topics ...string) *TopicEmbedder {
	return &TopicEmbedder{topics: topics}
}

// Embed maps text onto the topic axes it mentions.
func (e *TopicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dimensions())
	lower := strings.ToLower(text)
	found := false
	for i, topic := range e.topics {
		if strings.Contains(lower, topic) {
			vec[i] = 1
			found = true
		}
	}
	if !found {
		vec[len(vec)-1] = 1
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *TopicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns one axis per topic plus the catch-all.
func (e *TopicEmbedder) Dimensions() int {
	return len(e.topics) + 1
}

// Close is a no-op for TopicEmbedder.
func (e *TopicEmbedder) Close() error {
	return nil
}
