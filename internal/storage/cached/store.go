// Package cached оборачивает PostStore LRU-кэшем точечных чтений.
// Посты неизменяемы, поэтому инвалидация не нужна.
package cached

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"
)

// Store кэширует найденные посты. Промахи не кэшируются.
type Store struct {
	inner storage.PostStore
	cache *lru.Cache[int64, domain.PostRecord]
}

// New оборачивает inner кэшем на size записей.
func New(inner storage.PostStore, size int) (*Store, error) {
	cache, err := lru.New[int64, domain.PostRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create post cache: %w", err)
	}
	return &Store{inner: inner, cache: cache}, nil
}

func (s *Store) FindMaxPostID(ctx context.Context) (int64, bool, error) {
	return s.inner.FindMaxPostID(ctx)
}

func (s *Store) CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error) {
	rec, err := s.inner.CreatePost(ctx, id, post)
	if err != nil {
		return nil, err
	}
	s.cache.Add(rec.ID, *rec)
	return rec, nil
}

func (s *Store) FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return &rec, nil
	}
	rec, err := s.inner.FindPostByID(ctx, id)
	if err != nil || rec == nil {
		return rec, err
	}
	s.cache.Add(id, *rec)
	return rec, nil
}

// Len - количество записей в кэше.
func (s *Store) Len() int { return s.cache.Len() }
