package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads the schema graph from the server.
type Fetcher interface {
	FetchSchema(ctx context.Context) (*Graph, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (*Graph, error)

// FetchSchema implements Fetcher.
func (f FetcherFunc) FetchSchema(ctx context.Context) (*Graph, error) {
	return f(ctx)
}

// Provider caches one schema graph per version token. Concurrent callers
// asking for the same token share a single fetch.
type Provider struct {
	fetcher Fetcher
	logger  *slog.Logger
	group   singleflight.Group

	mu    sync.Mutex
	token string
	graph *Graph
}

// NewProvider creates a Provider. A nil logger means slog.Default().
func NewProvider(fetcher Fetcher, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "schema_provider")),
	}
}

// Get returns the graph for the given version token, fetching it when the
// cached graph was built for another token.
func (p *Provider) Get(ctx context.Context, token string) (*Graph, error) {
	p.mu.Lock()
	if p.graph != nil && p.token == token {
		g := p.graph
		p.mu.Unlock()

		return g, nil
	}
	p.mu.Unlock()

	ch := p.group.DoChan(token, func() (any, error) {
		p.logger.Debug("fetching schema", slog.String("version", token))

		// Callers joining this fetch must not fail when the first one gives up.
		g, err := p.fetcher.FetchSchema(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.token, p.graph = token, g
		p.mu.Unlock()

		return g, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to fetch schema %q: %w", token, res.Err)
		}

		return res.Val.(*Graph), nil
	}
}

// Invalidate drops the cached graph.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token, p.graph = "", nil
}
