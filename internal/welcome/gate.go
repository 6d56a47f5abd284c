// Package welcome хранит флаг одноразового приветственного окна.
package welcome

import (
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const dismissedValue = "true"

// Gate решает, показывать ли приветственное окно.
type Gate struct {
	storage domain.KeyValueStorage
}

// NewGate создаёт Gate поверх хранилища.
func NewGate(storage domain.KeyValueStorage) *Gate {
	return &Gate{storage: storage}
}

// ShouldShow возвращает true, пока окно ни разу не закрывали.
func (g *Gate) ShouldShow() (bool, error) {
	_, err := g.storage.Get(domain.StorageKeyWelcome)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("read welcome flag: %w", err)
	}
	return false, nil
}

// Dismiss отмечает окно закрытым.
func (g *Gate) Dismiss() error {
	if err := g.storage.Set(domain.StorageKeyWelcome, dismissedValue); err != nil {
		return fmt.Errorf("write welcome flag: %w", err)
	}
	return nil
}
