package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultNamespace используется как профиль корзины, если другой не задан.
const DefaultNamespace = "default"

// KeyValueStorage хранит ключи корзины в таблице storefront_kv.
// namespace отделяет профили покупателей друг от друга.
type KeyValueStorage struct {
	db        *sql.DB
	namespace string
}

// NewKeyValueStorage создаёт хранилище для профиля namespace.
func NewKeyValueStorage(store *Store, namespace string) *KeyValueStorage {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &KeyValueStorage{db: store.DB(), namespace: namespace}
}

func (s *KeyValueStorage) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM storefront_kv WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get key %q: %w", key, err)
	}
	return value, nil
}

func (s *KeyValueStorage) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storefront_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

func (s *KeyValueStorage) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM storefront_kv WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}

var _ domain.KeyValueStorage = (*KeyValueStorage)(nil)
