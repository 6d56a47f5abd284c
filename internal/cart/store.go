// Package cart содержит Cart Store, единственный источник правды о содержимом корзины.
//
// Store держит упорядоченный список позиций в памяти, после каждой мутации
// переписывает его в key-value хранилище целиком, обновляет счётчик (badge)
// и, если панель корзины открыта, полностью перерисовывает её.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	opAdd    = "add"
	opRemove = "remove"
	opUpdate = "update_quantity"
)

// BadgeView показывает суммарное количество единиц в корзине.
type BadgeView interface {
	ShowCount(count int)
}

// DetailView показывает панель со списком позиций и итоговой суммой.
type DetailView interface {
	IsOpen() bool
	Open()
	Close()
	Render(items []domain.LineItem, total decimal.Decimal)
}

// Options задаёт зависимости Store.
type Options struct {
	Badge            BadgeView
	Detail           DetailView
	Logger           *log.Entry
	Metrics          *metrics.StorefrontMetrics
	PlaceholderImage string
	OpenOnAdd        bool
}

// Option настраивает Store.
type Option func(*Options)

// WithBadge задаёт view счётчика.
func WithBadge(badge BadgeView) Option {
	return func(opts *Options) { opts.Badge = badge }
}

// WithDetailView задаёт панель корзины.
func WithDetailView(view DetailView) Option {
	return func(opts *Options) { opts.Detail = view }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithMetrics включает prometheus-метрики корзины.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(opts *Options) { opts.Metrics = m }
}

// WithPlaceholderImage переопределяет картинку по умолчанию.
func WithPlaceholderImage(url string) Option {
	return func(opts *Options) { opts.PlaceholderImage = url }
}

// WithOpenOnAdd открывает панель корзины после каждого добавления товара.
func WithOpenOnAdd(enabled bool) Option {
	return func(opts *Options) { opts.OpenOnAdd = enabled }
}

// Store реализует Cart Store. Создаётся контроллером страницы один раз и передаётся
// обработчикам по ссылке.
type Store struct {
	mu    sync.RWMutex
	items []domain.LineItem

	storage     domain.KeyValueStorage
	badge       BadgeView
	detail      DetailView
	logger      *log.Entry
	metrics     *metrics.StorefrontMetrics
	placeholder string
	openOnAdd   bool
}

// NewStore создаёт пустой Store поверх хранилища. Для загрузки сохранённой
// корзины нужно вызвать Initialize.
func NewStore(storage domain.KeyValueStorage, options ...Option) *Store {
	opts := Options{PlaceholderImage: domain.PlaceholderImage}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-store")
	}
	if opts.PlaceholderImage == "" {
		opts.PlaceholderImage = domain.PlaceholderImage
	}

	return &Store{
		storage:     storage,
		badge:       opts.Badge,
		detail:      opts.Detail,
		logger:      logger,
		metrics:     opts.Metrics,
		placeholder: opts.PlaceholderImage,
		openOnAdd:   opts.OpenOnAdd,
	}
}

// Initialize загружает корзину из хранилища и обновляет счётчик.
// Отсутствующее или повреждённое значение даёт пустую корзину; ошибкой
// считается только сбой чтения самого хранилища.
func (s *Store) Initialize() error {
	raw, err := s.storage.Get(domain.StorageKeyCart)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		raw = ""
	case err != nil:
		return fmt.Errorf("load cart: %w", err)
	}

	items, decodeErr := decodeItems(raw)
	if decodeErr != nil {
		s.logger.WithError(decodeErr).Warn("stored cart is malformed, starting with empty cart")
		items = nil
	}

	s.mu.Lock()
	s.items = items
	count := domain.CartCount(s.items)
	s.mu.Unlock()

	s.metrics.RecordCartLoaded(count)
	s.showCount(count)
	s.logger.WithField("items", len(items)).Debug("cart initialized")
	return nil
}

// AddItem увеличивает количество существующей позиции или добавляет новую
// с количеством 1.
func (s *Store) AddItem(id, name string, price decimal.Decimal, image string) error {
	if id == "" {
		return domain.ErrItemIDRequired
	}
	if price.IsNegative() {
		return domain.ErrInvalidPrice
	}
	if image == "" {
		image = s.placeholder
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx >= 0 {
		s.items[idx].Quantity++
	} else {
		s.items = append(s.items, domain.LineItem{
			ID:       id,
			Name:     name,
			Price:    price,
			Quantity: 1,
			Image:    image,
		})
	}
	s.mu.Unlock()

	err := s.commit(opAdd)
	if s.openOnAdd {
		s.OpenView()
	}
	return err
}

// RemoveItem удаляет позицию по индексу.
func (s *Store) RemoveItem(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return fmt.Errorf("remove item %d: %w", index, domain.ErrIndexOutOfRange)
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.mu.Unlock()

	return s.commit(opRemove)
}

// UpdateQuantity прибавляет delta к количеству позиции; если результат меньше 1,
// позиция удаляется.
func (s *Store) UpdateQuantity(index, delta int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return fmt.Errorf("update quantity %d: %w", index, domain.ErrIndexOutOfRange)
	}
	s.items[index].Quantity += delta
	if s.items[index].Quantity < 1 {
		s.items = append(s.items[:index], s.items[index+1:]...)
	}
	s.mu.Unlock()

	return s.commit(opUpdate)
}

// Total возвращает сумму price*quantity; 0 для пустой корзины.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartTotal(s.items)
}

// Count возвращает суммарное количество единиц; 0 для пустой корзины.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartCount(s.items)
}

// Len возвращает количество позиций.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items возвращает копию списка позиций в порядке добавления.
func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// OpenView перерисовывает панель корзины и показывает её.
func (s *Store) OpenView() {
	if s.detail == nil {
		return
	}
	items := s.Items()
	s.detail.Render(items, domain.CartTotal(items))
	s.detail.Open()
}

// CloseView скрывает панель корзины.
func (s *Store) CloseView() {
	if s.detail == nil {
		return
	}
	s.detail.Close()
}

// commit выполняет побочные эффекты мутации строго по порядку:
// сохранение, счётчик, перерисовка открытой панели.
func (s *Store) commit(op string) error {
	items := s.Items()
	count := domain.CartCount(items)

	var persistErr error
	if err := s.persist(items); err != nil {
		s.metrics.RecordPersistFailure()
		s.logger.WithError(err).WithField("op", op).Error("failed to persist cart")
		persistErr = fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}

	s.metrics.RecordCartMutation(op, count)
	s.showCount(count)
	if s.detail != nil && s.detail.IsOpen() {
		s.detail.Render(items, domain.CartTotal(items))
	}

	s.logger.WithFields(log.Fields{
		"op":    op,
		"items": len(items),
		"units": count,
	}).Debug("cart updated")

	return persistErr
}

func (s *Store) persist(items []domain.LineItem) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}
	return s.storage.Set(domain.StorageKeyCart, raw)
}

func (s *Store) showCount(count int) {
	if s.badge != nil {
		s.badge.ShowCount(count)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []domain.LineItem {
	result := make([]domain.LineItem, len(s.items))
	copy(result, s.items)
	return result
}
