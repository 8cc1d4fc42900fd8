package mutations

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedBackend memoises mutation pages for a fixed TTL. Mutations are
// immutable from the client's point of view, so a page can be reused until it
// expires. List operations always reach the wrapped backend.
type CachedBackend struct {
	Backend
	pages *gocache.Cache
}

// NewCachedBackend wraps next with a page cache. A ttl <= 0 returns next as is.
func NewCachedBackend(next Backend, ttl time.Duration) Backend {
	if ttl <= 0 || next == nil {
		return next
	}
	return &CachedBackend{
		Backend: next,
		pages:   gocache.New(ttl, 2*ttl),
	}
}

// FetchMutations serves the page from cache when present.
func (b *CachedBackend) FetchMutations(ctx context.Context, pageNumber, pageSize int) (*MutationPage, error) {
	key := strconv.Itoa(pageNumber) + ":" + strconv.Itoa(pageSize)
	if v, ok := b.pages.Get(key); ok {
		if page, ok := v.(*MutationPage); ok {
			return copyPage(page), nil
		}
	}
	page, err := b.Backend.FetchMutations(ctx, pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	b.pages.SetDefault(key, copyPage(page))
	return page, nil
}

// Flush drops every cached page.
func (b *CachedBackend) Flush() {
	b.pages.Flush()
}

func copyPage(p *MutationPage) *MutationPage {
	if p == nil {
		return nil
	}
	out := *p
	out.Resources = append([]Mutation(nil), p.Resources...)
	return &out
}
