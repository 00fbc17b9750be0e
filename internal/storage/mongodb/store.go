// Package mongodb хранит посты в коллекции MongoDB в виде документов {id, post}.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "posts"

// Store реализует интерфейс PostStore поверх MongoDB.
type Store struct {
	client *mongo.Client
	posts  *mongo.Collection
}

// New подключается к MongoDB, проверяет соединение и создает уникальный индекс по id.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		posts:  client.Database(database).Collection(collectionName),
	}

	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create id index: %w", err)
	}
	return s, nil
}

func (s *Store) FindMaxPostID(ctx context.Context) (int64, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "id", Value: -1}}).
		SetProjection(bson.D{{Key: "id", Value: 1}})

	var rec domain.PostRecord
	err := s.posts.FindOne(ctx, bson.D{}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storage.Wrap("find max post id", err)
	}
	return rec.ID, true, nil
}

func (s *Store) CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error) {
	rec := domain.PostRecord{ID: id, Post: post}
	if _, err := s.posts.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = fmt.Errorf("%w: %v", storage.ErrDuplicateID, err)
		}
		return nil, storage.Wrap("create post", err)
	}
	return &rec, nil
}

func (s *Store) FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error) {
	var rec domain.PostRecord
	err := s.posts.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Wrap("find post", err)
	}
	return &rec, nil
}

// Drop удаляет коллекцию. Нужен тестам.
func (s *Store) Drop(ctx context.Context) error {
	return s.posts.Drop(ctx)
}

// Close отключает клиента.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
