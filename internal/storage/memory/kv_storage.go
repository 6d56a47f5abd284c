package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// kvStorageInMemory хранит ключи в памяти: для тестов и одноразовых сессий.
type kvStorageInMemory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKeyValueStorage возвращает пустое in-memory хранилище.
func NewKeyValueStorage() domain.KeyValueStorage {
	return &kvStorageInMemory{values: make(map[string]string)}
}

// Get возвращает значение или ErrKeyNotFound.
func (s *kvStorageInMemory) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

// Set перезаписывает значение.
func (s *kvStorageInMemory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete удаляет ключ.
func (s *kvStorageInMemory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

var _ domain.KeyValueStorage = (*kvStorageInMemory)(nil)
