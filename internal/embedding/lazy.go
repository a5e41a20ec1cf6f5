package embedding

import (
	"context"
	"sync"
)

// Lazy defers construction of an expensive embedder (model load) until the
// first call that actually needs it, and constructs it at most once per
// process. Dimensions answers without forcing initialization so that cache
// and index metadata can be validated cheaply.
type Lazy struct {
	factory    func() (Embedder, error)
	dimensions int

	once     sync.Once
	embedder Embedder
	initErr  error
}

// NewLazy wraps factory in a memoized lazy initializer. dimensions is the
// model dimension, known from configuration ahead of model load.
func NewLazy(dimensions int, factory func() (Embedder, error)) *Lazy {
	return &Lazy{factory: factory, dimensions: dimensions}
}

func (l *Lazy) get() (Embedder, error) {
	l.once.Do(func() {
		l.embedder, l.initErr = l.factory()
	})
	return l.embedder, l.initErr
}

// Embed initializes the underlying embedder on first use, then delegates.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

// EmbedBatch initializes the underlying embedder on first use, then delegates.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.EmbedBatch(ctx, texts)
}

// Dimensions returns the configured model dimension without initializing.
func (l *Lazy) Dimensions() int {
	return l.dimensions
}

// Close closes the underlying embedder if it was ever initialized.
func (l *Lazy) Close() error {
	if l.embedder != nil {
		return l.embedder.Close()
	}
	return nil
}
