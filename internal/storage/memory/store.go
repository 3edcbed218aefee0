package memory

import (
	"context"

	"sync"

	"github.com/burgerchain/resto/internal/domain"
)

// Store — in-memory хранилище каталога и заказов для тестов и локальной
// разработки. Транзакции сериализуются общим мьютексом и работают с рабочей
// копией состояния: копия подменяет закоммиченное состояние атомарно только
// при успехе fn, при ошибке просто отбрасывается. Читатели вне транзакции
// видят либо состояние до триггера, либо после — никаких промежуточных
// итогов, как и в postgres-хранилище.
//
// Блокировка на транзакцию грубее требуемой per-order сериализации, но
// корректна; построчные блокировки остаются свойством postgres-хранилища.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

type state struct {
	restaurants   map[string]domain.Restaurant
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
	dishes        map[string]domain.Dish
	orders        map[string]domain.Order
	lines         map[string]domain.OrderLine
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

func newState() *state {
	return &state{
		restaurants:   make(map[string]domain.Restaurant),
		categories:    make(map[string]domain.Category),
		subcategories: make(map[string]domain.Subcategory),
		dishes:        make(map[string]domain.Dish),
		orders:        make(map[string]domain.Order),
		lines:         make(map[string]domain.OrderLine),
	}
}

// clone снимает глубокую копию состояния. Все значения в map — value-типы
// (decimal.Decimal неизменяем), поэтому поэлементного копирования достаточно;
// Lines в сохранённых заказах всегда пустые, позиции живут в lines.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.subcategories {
		c.subcategories[k] = v
	}
	for k, v := range s.dishes {
		c.dishes[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	return c
}

// InTx выполняет fn над рабочей копией состояния, сериализуясь с другими
// транзакциями. Копия публикуется одним присваиванием под mu только после
// успеха fn; ошибка оставляет закоммиченное состояние нетронутым.
func (s *Store) InTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&repositories{store: s, tx: working}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = working
	s.mu.Unlock()
	return nil
}

// Repos возвращает репозитории над закоммиченным состоянием.
func (s *Store) Repos() domain.Repositories {
	return &repositories{store: s}
}

// repositories связывает репозитории либо с рабочей копией транзакции
// (tx != nil), либо с закоммиченным состоянием хранилища.
type repositories struct {
	store *Store
	tx    *state
}

func (r *repositories) Catalog() domain.CatalogRepository {
	return &catalogRepository{access: access{store: r.store, tx: r.tx}}
}

func (r *repositories) Orders() domain.OrderRepository {
	return &orderRepository{access: access{store: r.store, tx: r.tx}}
}

// access выбирает состояние для операции репозитория. Рабочая копия
// транзакции не требует блокировки: транзакции уже сериализованы txMu,
// а копию до коммита больше никто не видит.
type access struct {
	store *Store
	tx    *state
}

func (a access) view() (*state, func()) {
	if a.tx != nil {
		return a.tx, func() {}
	}
	a.store.mu.RLock()
	return a.store.st, a.store.mu.RUnlock
}

func (a access) mutate() (*state, func()) {
	if a.tx != nil {
		return a.tx, func() {}
	}
	a.store.mu.Lock()
	return a.store.st, a.store.mu.Unlock
}

var _ domain.TxRunner = (*Store)(nil)
