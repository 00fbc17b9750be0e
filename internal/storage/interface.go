package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/blog-api/internal/domain"
)

// ErrDuplicateID - запись с таким id уже существует.
var ErrDuplicateID = errors.New("duplicate post id")

// PostStore определяет контракт для хранилищ постов.
type PostStore interface {
	// FindMaxPostID возвращает наибольший сохраненный id; ok == false, если хранилище пустое.
	FindMaxPostID(ctx context.Context) (id int64, ok bool, err error)
	// CreatePost сохраняет новую запись под заданным id.
	CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error)
	// FindPostByID возвращает (nil, nil), если поста нет.
	FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error)
}

// Error - ошибка хранилища. Message можно отдавать клиенту, Err - нет.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap оборачивает ошибку драйвера в *Error. Повторно не оборачивает.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	msg := "storage unavailable"
	switch {
	case errors.Is(err, ErrDuplicateID):
		msg = ErrDuplicateID.Error()
	case errors.Is(err, context.DeadlineExceeded):
		msg = "storage timeout"
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	}
	return &Error{Op: op, Message: msg, Err: err}
}

// PublicMessage возвращает безопасное для ответа описание ошибки.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal error"
}
