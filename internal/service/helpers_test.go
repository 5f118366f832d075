package service

import (
	"context"
	"net/url"
	"sync"

	"github.com/ippclub/gem-poller/internal/model"
	"github.com/ippclub/gem-poller/pkg/gem"
)

// fakeQuerier returns a fixed listing or error
type fakeQuerier struct {
	mu       sync.Mutex
	versions []string
	err      error
	calls    int
}

func (q *fakeQuerier) Query(_ context.Context, _, name string) (*model.Package, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	if len(q.versions) == 0 {
		return nil, gem.ErrNoSuchPackage
	}
	return &model.Package{Name: name, Versions: q.versions}, nil
}

func (q *fakeQuerier) setVersions(versions ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.versions = versions
}

type proberFunc func(ctx context.Context, u *url.URL) error

func (f proberFunc) Probe(ctx context.Context, u *url.URL) error {
	return f(ctx, u)
}
