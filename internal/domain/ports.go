package domain

import "time"

// KeyValueStorage описывает синхронное локальное key-value хранилище (аналог localStorage).
type KeyValueStorage interface {
	// Get возвращает значение или ErrKeyNotFound, если ключа нет.
	Get(key string) (string, error)
	// Set создаёт или перезаписывает значение.
	Set(key, value string) error
	// Delete удаляет ключ; отсутствие ключа ошибкой не считается.
	Delete(key string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
