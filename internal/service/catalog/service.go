package catalogsvc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/consistency"
	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/messaging/kafka"
)

// EventPublisher публикует события каталога во внешнюю шину.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Service управляет справочником: рестораны, категории, блюда и их цены.
// Изменение цены — триггер пересчёта открытых заказов: новая цена и
// распространение фиксируются одной транзакцией.
type Service struct {
	tx     domain.TxRunner
	engine *consistency.Engine
	events EventPublisher
	logger *log.Entry
}

// NewService конструирует сервис с зависимостями. Publisher может быть nil.
func NewService(tx domain.TxRunner, engine *consistency.Engine, events EventPublisher, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog-service")
	}
	return &Service{
		tx:     tx,
		engine: engine,
		events: events,
		logger: logger,
	}
}

// CreateRestaurant регистрирует ресторан.
func (s *Service) CreateRestaurant(ctx context.Context, name, address string) (domain.Restaurant, error) {
	if name == "" {
		return domain.Restaurant{}, domain.ErrNameRequired
	}

	restaurant := domain.Restaurant{
		ID:      uuid.NewString(),
		Name:    name,
		Address: address,
	}
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		return repos.Catalog().CreateRestaurant(restaurant)
	})
	if err != nil {
		return domain.Restaurant{}, err
	}
	return restaurant, nil
}

// CreateCategory создаёт категорию меню.
func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	if name == "" {
		return domain.Category{}, domain.ErrNameRequired
	}

	category := domain.Category{ID: uuid.NewString(), Name: name}
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		return repos.Catalog().CreateCategory(category)
	})
	if err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// CreateSubcategory создаёт подкатегорию внутри категории.
func (s *Service) CreateSubcategory(ctx context.Context, categoryID, name string) (domain.Subcategory, error) {
	if name == "" {
		return domain.Subcategory{}, domain.ErrNameRequired
	}
	if categoryID == "" {
		return domain.Subcategory{}, domain.ErrCategoryRequired
	}

	subcategory := domain.Subcategory{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Name:       name,
	}
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		return repos.Catalog().CreateSubcategory(subcategory)
	})
	if err != nil {
		return domain.Subcategory{}, err
	}
	return subcategory, nil
}

// CreateDish добавляет блюдо в меню с начальной ценой.
func (s *Service) CreateDish(ctx context.Context, name string, price decimal.Decimal, categoryID, subcategoryID string) (domain.Dish, error) {
	dish := domain.Dish{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         price,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
	}
	if errs := dish.ValidateInvariants(); len(errs) > 0 {
		return domain.Dish{}, errs[0]
	}

	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		return repos.Catalog().CreateDish(dish)
	})
	if err != nil {
		return domain.Dish{}, err
	}
	return dish, nil
}

// SetDishPrice меняет цену блюда и пересчитывает все открытые заказы, где оно
// встречается. Цена и пересчёт либо фиксируются вместе, либо откатываются
// вместе. Закрытые заказы не трогаются.
func (s *Service) SetDishPrice(ctx context.Context, dishID string, price decimal.Decimal) (domain.Dish, error) {
	if price.IsNegative() {
		return domain.Dish{}, domain.ErrDishPriceNegative
	}

	var updated domain.Dish
	var oldPrice decimal.Decimal
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		dish, err := repos.Catalog().GetDish(dishID)
		if err != nil {
			return err
		}
		oldPrice = dish.Price

		if err := repos.Catalog().UpdateDishPrice(dishID, price); err != nil {
			return err
		}

		dish.Price = price
		updated = dish
		return s.engine.OnDishPriceChanged(repos, dish)
	})
	if err != nil {
		return domain.Dish{}, err
	}

	s.publishPriceChanged(updated, oldPrice)
	s.logger.WithFields(log.Fields{
		"dish_id":   dishID,
		"old_price": oldPrice.String(),
		"new_price": price.String(),
	}).Info("dish price changed")

	return updated, nil
}

// GetDish возвращает блюдо.
func (s *Service) GetDish(_ context.Context, dishID string) (domain.Dish, error) {
	return s.tx.Repos().Catalog().GetDish(dishID)
}

// GetMenu возвращает проекцию меню для выдачи клиентам.
func (s *Service) GetMenu(_ context.Context) ([]domain.MenuItem, error) {
	return s.tx.Repos().Catalog().ListMenu()
}

func (s *Service) publishPriceChanged(dish domain.Dish, oldPrice decimal.Decimal) {
	if s.events == nil {
		return
	}
	event := kafka.NewDishPriceChangedEvent(dish.ID, oldPrice.String(), dish.Price.String())
	if err := s.events.PublishEvent(kafka.TopicCatalogEvents, dish.ID, event); err != nil {
		s.logger.WithError(err).WithField("dish_id", dish.ID).Warn("failed to publish price change event")
	}
}
