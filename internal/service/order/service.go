package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/consistency"
	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/messaging/kafka"
)

const defaultListOrdersLimit = 100

// EventPublisher публикует доменные события во внешнюю шину.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Item — позиция во входящем запросе на создание заказа.
type Item struct {
	DishID   string
	Quantity int32
}

// Service оркестрирует жизненный цикл заказа: создание, правки позиций,
// закрытие. Все мутации проходят через движок согласованности внутри одной
// транзакции; timeline и kafka — наблюдательные каналы после коммита.
type Service struct {
	tx       domain.TxRunner
	timeline domain.TimelineRepository
	engine   *consistency.Engine
	events   EventPublisher
	logger   *log.Entry
}

// NewService конструирует сервис с зависимостями. Publisher может быть nil:
// события тогда не публикуются.
func NewService(
	tx domain.TxRunner,
	timeline domain.TimelineRepository,
	engine *consistency.Engine,
	events EventPublisher,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		tx:       tx,
		timeline: timeline,
		engine:   engine,
		events:   events,
		logger:   logger,
	}
}

// CreateOrder создаёт заказ со статусом "New" и позициями по текущим ценам
// блюд. Валидация выполняется до каких-либо записей; заказ и все позиции
// фиксируются одной транзакцией.
func (s *Service) CreateOrder(ctx context.Context, operator, restaurantID string, items []Item) (domain.Order, error) {
	if operator == "" {
		return domain.Order{}, domain.ErrOperatorRequired
	}
	if restaurantID == "" {
		return domain.Order{}, domain.ErrRestaurantRequired
	}
	if len(items) == 0 {
		return domain.Order{}, domain.ErrLinesRequired
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.Order{}, domain.ErrQuantityInvalid
		}
	}

	orderID := uuid.NewString()
	var created domain.Order
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		if _, err := repos.Catalog().GetRestaurant(restaurantID); err != nil {
			return err
		}

		now := time.Now().UTC()
		order := domain.Order{
			ID:           orderID,
			Operator:     operator,
			RestaurantID: restaurantID,
			Status:       domain.OrderStatusNew,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Orders().CreateOrder(order); err != nil {
			return err
		}

		for _, item := range items {
			line := domain.OrderLine{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				DishID:    item.DishID,
				Quantity:  item.Quantity,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.engine.OnOrderLineUpserted(repos, &line); err != nil {
				return err
			}
		}

		reloaded, err := repos.Orders().GetOrder(orderID)
		if err != nil {
			return err
		}
		created = reloaded
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("operator", operator).Warn("order creation rejected")
		return domain.Order{}, err
	}

	s.appendTimeline(orderID, domain.TimelineOrderCreated, "")
	s.publishOrderEvent(kafka.EventTypeOrderCreated, created, map[string]interface{}{
		"restaurant_id": restaurantID,
	})

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"operator": operator,
		"total":    created.TotalPrice.String(),
	}).Info("order created")

	return created, nil
}

// CloseOrder переводит заказ в статус "Closed" и замораживает его итог.
// Повторное закрытие — no-op, возвращается уже закрытый заказ.
func (s *Service) CloseOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var closed domain.Order
	var alreadyClosed bool
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		order, err := repos.Orders().GetOrderForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.Closed {
			alreadyClosed = true
			closed = order
			return nil
		}
		if err := repos.Orders().MarkOrderClosed(orderID, domain.OrderStatusClosed); err != nil {
			return err
		}
		reloaded, err := repos.Orders().GetOrder(orderID)
		if err != nil {
			return err
		}
		closed = reloaded
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if !alreadyClosed {
		s.appendTimeline(orderID, domain.TimelineOrderClosed, "")
		s.publishOrderEvent(kafka.EventTypeOrderClosed, closed, nil)
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"total":    closed.TotalPrice.String(),
		}).Info("order closed")
	}

	return closed, nil
}

// UpdateLineQuantity меняет количество в позиции открытого заказа и
// пересчитывает снапшот по текущей цене блюда.
func (s *Service) UpdateLineQuantity(ctx context.Context, orderID, lineID string, quantity int32) (domain.Order, error) {
	if quantity <= 0 {
		return domain.Order{}, domain.ErrQuantityInvalid
	}

	var updated domain.Order
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		order, err := repos.Orders().GetOrderForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.Closed {
			return domain.ErrOrderClosed
		}

		line, err := repos.Orders().GetLine(lineID)
		if err != nil {
			return err
		}
		if line.OrderID != orderID {
			return domain.ErrOrderLineNotFound
		}

		line.Quantity = quantity
		if err := s.engine.OnOrderLineUpserted(repos, &line); err != nil {
			return err
		}

		reloaded, err := repos.Orders().GetOrder(orderID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.appendTimeline(orderID, domain.TimelineOrderLineUpdated, fmt.Sprintf("line %s qty %d", lineID, quantity))
	s.publishOrderEvent(kafka.EventTypeOrderLineUpdated, updated, map[string]interface{}{
		"line_id": lineID,
	})

	return updated, nil
}

// RemoveLine удаляет позицию открытого заказа; итог уменьшается ровно на её
// сумму в той же транзакции.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID string) (domain.Order, error) {
	var updated domain.Order
	err := s.tx.InTx(ctx, func(repos domain.Repositories) error {
		order, err := repos.Orders().GetOrderForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.Closed {
			return domain.ErrOrderClosed
		}

		line, err := repos.Orders().GetLine(lineID)
		if err != nil {
			return err
		}
		if line.OrderID != orderID {
			return domain.ErrOrderLineNotFound
		}

		if err := repos.Orders().DeleteLine(lineID); err != nil {
			return err
		}
		if err := s.engine.OnOrderLineRemoved(repos, line); err != nil {
			return err
		}

		reloaded, err := repos.Orders().GetOrder(orderID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.appendTimeline(orderID, domain.TimelineOrderLineRemoved, fmt.Sprintf("line %s", lineID))
	s.publishOrderEvent(kafka.EventTypeOrderLineRemoved, updated, map[string]interface{}{
		"line_id": lineID,
	})

	return updated, nil
}

// GetOrder возвращает заказ с позициями и его timeline.
func (s *Service) GetOrder(_ context.Context, orderID string) (domain.Order, []domain.TimelineEvent, error) {
	order, err := s.tx.Repos().Orders().GetOrder(orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	var events []domain.TimelineEvent
	if s.timeline != nil {
		events, err = s.timeline.List(orderID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to load order timeline")
			events = nil
		}
	}

	return order, events, nil
}

// ListOrders возвращает заказы ресторана, новые первыми.
func (s *Service) ListOrders(_ context.Context, restaurantID string, limit int) ([]domain.Order, error) {
	if restaurantID == "" {
		return nil, domain.ErrRestaurantRequired
	}
	if limit <= 0 {
		limit = defaultListOrdersLimit
	}
	return s.tx.Repos().Orders().ListOrdersByRestaurant(restaurantID, limit)
}

func (s *Service) appendTimeline(orderID, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("failed to append timeline event")
	}
}

func (s *Service) publishOrderEvent(eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := kafka.NewOrderEvent(eventType, order.ID, order.Operator, order.Status, order.TotalPrice.String(), metadata)
	if err := s.events.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    string(eventType),
		}).Warn("failed to publish order event")
	}
}
