package projects

import (
	"context"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
)

const rootKey = "root"

type cachedParameters struct {
	params map[string]string
	found  bool
}

// CachedSource remembers lookups of another Source for ttl, misses included.
type CachedSource struct {
	source Source
	cache  *ccache.Cache
	ttl    time.Duration
}

func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  ccache.New(ccache.Configure().MaxSize(1024)),
		ttl:    ttl,
	}
}

func (s *CachedSource) ProjectParameters(ctx context.Context, projectID string) (map[string]string, error) {
	item, err := s.cache.Fetch("project:"+projectID, s.ttl, func() (interface{}, error) {
		params, err := s.source.ProjectParameters(ctx, projectID)
		if errors.Is(err, ErrProjectNotFound) {
			return &cachedParameters{}, nil
		} else if err != nil {
			return nil, err
		}
		return &cachedParameters{params: params, found: true}, nil
	})
	if err != nil {
		return nil, err
	}

	cached := item.Value().(*cachedParameters)
	if !cached.found {
		return nil, errors.Wrap(ErrProjectNotFound, projectID)
	}
	return cached.params, nil
}

func (s *CachedSource) RootParameters(ctx context.Context) (map[string]string, error) {
	item, err := s.cache.Fetch(rootKey, s.ttl, func() (interface{}, error) {
		return s.source.RootParameters(ctx)
	})
	if err != nil {
		return nil, err
	}
	return item.Value().(map[string]string), nil
}

func (s *CachedSource) Stop() {
	s.cache.Stop()
}
