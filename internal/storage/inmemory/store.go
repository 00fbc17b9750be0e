package inmemory

import (
	"context"
	"sync"

	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"
)

// Store реализует интерфейс PostStore в памяти.
type Store struct {
	mu    sync.RWMutex
	posts map[int64]domain.PostRecord
	maxID int64
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts: make(map[int64]domain.PostRecord),
	}
}

func (s *Store) FindMaxPostID(ctx context.Context) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, storage.Wrap("find max post id", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.posts) == 0 {
		return 0, false, nil
	}
	return s.maxID, true, nil
}

func (s *Store) CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("create post", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; ok {
		return nil, storage.Wrap("create post", storage.ErrDuplicateID)
	}
	rec := domain.PostRecord{ID: id, Post: post}
	s.posts[id] = rec
	if id > s.maxID {
		s.maxID = id
	}
	return &rec, nil
}

func (s *Store) FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("find post", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Len - количество сохраненных постов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
