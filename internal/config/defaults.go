package config

// DefaultModel is the embedding model tsunagu ships tuned for.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Vault.Extensions == nil {
		cfg.Vault.Extensions = []string{".md", ".markdown"}
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultModel
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = ".tsunagu/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Similarity.RelatedMin == 0 {
		cfg.Similarity.RelatedMin = 0.6
	}
	if cfg.Similarity.ClusterMin == 0 {
		cfg.Similarity.ClusterMin = 0.7
	}
	if cfg.Similarity.LinkMin == 0 {
		cfg.Similarity.LinkMin = 0.7
	}
	if cfg.Similarity.BidirectionalMin == 0 {
		cfg.Similarity.BidirectionalMin = 0.75
	}
	if cfg.Similarity.TopK == 0 {
		cfg.Similarity.TopK = 10
	}
	if cfg.Similarity.MaxSuggestions == 0 {
		cfg.Similarity.MaxSuggestions = 10
	}
}
