// Package allocator выдает последовательные id постов. Состояние не хранится
// отдельно: при старте следующий id восстанавливается по максимуму в хранилище.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrInit - не удалось прочитать максимум из хранилища, счетчик начат с 1.
	ErrInit = errors.New("allocator init failed, starting from 1")
	// ErrAlreadyInitialized - Initialize вызывается ровно один раз.
	ErrAlreadyInitialized = errors.New("allocator already initialized")
)

// MaxIDFinder - часть PostStore, нужная для инициализации.
type MaxIDFinder interface {
	FindMaxPostID(ctx context.Context) (int64, bool, error)
}

// Allocator владеет счетчиком nextID. До Initialize резервирование блокируется.
type Allocator struct {
	log zerolog.Logger

	mu     sync.Mutex
	nextID int64
	inited bool
	ready  chan struct{}
}

// New создает неинициализированный аллокатор.
func New(log zerolog.Logger) *Allocator {
	return &Allocator{
		log:   log.With().Str("component", "allocator").Logger(),
		ready: make(chan struct{}),
	}
}

// Initialize читает максимальный id и открывает резервирование.
// При ошибке хранилища аллокатор все равно становится готовым с nextID = 1,
// а вызывающему возвращается ошибка, оборачивающая ErrInit.
func (a *Allocator) Initialize(ctx context.Context, store MaxIDFinder) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inited {
		return ErrAlreadyInitialized
	}

	var initErr error
	maxID, ok, err := store.FindMaxPostID(ctx)
	switch {
	case err != nil:
		a.nextID = 1
		initErr = fmt.Errorf("%w: %v", ErrInit, err)
		a.log.Warn().Err(err).Int64("next_id", a.nextID).Msg("finding highest post id failed, degraded start")
	case !ok:
		a.nextID = 1
		a.log.Info().Int64("next_id", a.nextID).Msg("no posts found, starting ids from 1")
	default:
		a.nextID = maxID + 1
		a.log.Info().Int64("next_id", a.nextID).Msg("post id allocator initialized")
	}

	a.inited = true
	close(a.ready)
	return initErr
}

// Ready закрывается после Initialize.
func (a *Allocator) Ready() <-chan struct{} { return a.ready }

// Reserve возвращает следующий id и сдвигает счетчик. Ждет Initialize,
// пока не истечет ctx.
func (a *Allocator) Reserve(ctx context.Context) (int64, error) {
	select {
	case <-a.ready:
	case <-ctx.Done():
		return 0, fmt.Errorf("allocator not ready: %w", ctx.Err())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	return id, nil
}

// Peek возвращает следующий id без резервирования; ok == false до Initialize.
func (a *Allocator) Peek() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextID, a.inited
}
