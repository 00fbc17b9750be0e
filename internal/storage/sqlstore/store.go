package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс PostStore поверх gorm (PostgreSQL или SQLite).
type Store struct {
	db *gorm.DB
}

// NewPostgres подключается к PostgreSQL по DSN.
func NewPostgres(dsn string, log logger.Interface) (*Store, error) {
	return New(postgres.Open(dsn), log)
}

// NewSQLite открывает (или создает) файл базы SQLite.
func NewSQLite(path string, log logger.Interface) (*Store, error) {
	return New(sqlite.Open(path), log)
}

// New создает хранилище для произвольного диалекта gorm и мигрирует схему.
func New(dialector gorm.Dialector, log logger.Interface) (*Store, error) {
	if log == nil {
		log = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.PostRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) FindMaxPostID(ctx context.Context) (int64, bool, error) {
	var rec domain.PostRecord
	err := s.db.WithContext(ctx).Select("id").Order("id DESC").Limit(1).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storage.Wrap("find max post id", err)
	}
	return rec.ID, true, nil
}

func (s *Store) CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error) {
	rec := domain.PostRecord{ID: id, Post: post}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicate(err) {
			err = fmt.Errorf("%w: %v", storage.ErrDuplicateID, err)
		}
		return nil, storage.Wrap("create post", err)
	}
	return &rec, nil
}

func (s *Store) FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error) {
	var rec domain.PostRecord
	err := s.db.WithContext(ctx).Take(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Wrap("find post", err)
	}
	return &rec, nil
}

// Драйверы без трансляции ошибок отдают только текст.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
