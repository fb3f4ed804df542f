// Package memory: in-memory реализация репозиториев. Каждая запись защищена
// собственным мьютексом, глобальной блокировки на изменение нет.
package memory

import (
	"context"
	"sync"

	"fulfillment-service/internal/repository"

	"github.com/google/uuid"
)

type entry[T any] struct {
	mu  sync.Mutex
	val T
}

// store: карта агрегатов с блокировкой на ключ. Map-мьютекс держится только
// на время поиска/вставки записи, изменения идут под мьютексом записи.
type store[T any] struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*entry[T]
	clone func(T) T
}

func newStore[T any](clone func(T) T) *store[T] {
	return &store[T]{
		items: make(map[uuid.UUID]*entry[T]),
		clone: clone,
	}
}

// insert добавляет запись, если id свободен и conflict не срабатывает ни на одной
// из существующих (проверка уникальности под той же блокировкой карты).
func (s *store[T]) insert(id uuid.UUID, v T, conflict func(T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		return false
	}
	if conflict != nil {
		for _, e := range s.items {
			e.mu.Lock()
			dup := conflict(e.val)
			e.mu.Unlock()
			if dup {
				return false
			}
		}
	}
	s.items[id] = &entry[T]{val: s.clone(v)}
	return true
}

func (s *store[T]) put(id uuid.UUID, v T) {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok {
		s.items[id] = &entry[T]{val: s.clone(v)}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.val = s.clone(v)
	e.mu.Unlock()
}

func (s *store[T]) lookup(id uuid.UUID) (*entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

func (s *store[T]) get(id uuid.UUID) (T, error) {
	e, ok := s.lookup(id)
	if !ok {
		var zero T
		return zero, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.clone(e.val), nil
}

// snapshot копирует все записи, удовлетворяющие keep. Писателей не блокирует
// дольше, чем на копирование одной записи.
func (s *store[T]) snapshot(keep func(T) bool) []T {
	s.mu.RLock()
	entries := make([]*entry[T], 0, len(s.items))
	for _, e := range s.items {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		v := s.clone(e.val)
		e.mu.Unlock()
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// update выполняет fn над рабочей копией под мьютексом записи; при ошибке
// запись не меняется.
func (s *store[T]) update(ctx context.Context, id uuid.UUID, fn func(*T) error) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	e, ok := s.lookup(id)
	if !ok {
		return zero, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := s.clone(e.val)
	if err := fn(&work); err != nil {
		return zero, err
	}
	e.val = work
	return s.clone(work), nil
}
