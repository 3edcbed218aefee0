package consistency

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/metrics"
)

// Триггеры распространения, используются как метка метрик.
const (
	TriggerDishPriceChanged = "dish_price_changed"
	TriggerLineUpserted     = "line_upserted"
	TriggerLineRemoved      = "line_removed"
)

// Engine пересчитывает производные поля: снапшоты цен в позициях и итоги заказов.
// Все операции работают с репозиториями, полученными вызывающим кодом внутри
// InTx: распространение фиксируется или откатывается вместе со своим триггером.
type Engine struct {
	logger  *log.Entry
	metrics *metrics.ConsistencyMetrics
}

// New создаёт движок с метриками в default registry.
func New(logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.WithField("component", "consistency-engine")
	}
	return &Engine{
		logger:  logger,
		metrics: metrics.NewConsistencyMetrics(),
	}
}

// NewWithoutMetrics создаёт движок без метрик (для тестов).
func NewWithoutMetrics(logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.WithField("component", "consistency-engine")
	}
	return &Engine{logger: logger}
}

// OnDishPriceChanged пересчитывает снапшоты всех позиций открытых заказов,
// ссылающихся на блюдо, и итоги затронутых заказов. Позиции закрытых заказов
// не трогаются: их значения заморожены на момент закрытия.
//
// Переданная цена dish.Price — единый снимок для всего запуска: каждый заказ
// либо целиком пересчитан по ней, либо не тронут вовсе.
func (e *Engine) OnDishPriceChanged(repos domain.Repositories, dish domain.Dish) error {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordPropagationRun(TriggerDishPriceChanged)
		defer func() {
			e.metrics.RecordPropagationDuration(TriggerDishPriceChanged, time.Since(start))
		}()
	}

	lines, err := repos.Orders().ListLinesByDish(dish.ID)
	if err != nil {
		return fmt.Errorf("list lines by dish: %w", err)
	}

	for _, orderID := range affectedOrderIDs(lines) {
		// Блокировка захватывается и отпускается на каждый заказ отдельно:
		// несвязанные заказы не конкурируют между собой.
		order, err := repos.Orders().GetOrderForUpdate(orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if order.Closed {
			if e.metrics != nil {
				e.metrics.RecordFrozenSkipped()
			}
			continue
		}

		recomputed := 0
		for _, line := range order.Lines {
			if line.DishID != dish.ID {
				continue
			}
			line.UnitPrice = dish.Price
			line.LineTotal = dish.Price.Mul(decimal.NewFromInt32(line.Quantity))
			if err := repos.Orders().UpsertLine(line); err != nil {
				return fmt.Errorf("update line %s snapshot: %w", line.ID, err)
			}
			recomputed++
		}
		if e.metrics != nil {
			e.metrics.RecordLinesRecomputed(recomputed)
		}

		if err := e.recomputeOrderTotal(repos, orderID); err != nil {
			return err
		}
	}

	return nil
}

// OnOrderLineUpserted выставляет производные поля позиции по текущей цене блюда,
// сохраняет её и пересчитывает итог заказа. Переданная позиция мутируется:
// вызывающий код получает заполненные UnitPrice и LineTotal.
func (e *Engine) OnOrderLineUpserted(repos domain.Repositories, line *domain.OrderLine) error {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordPropagationRun(TriggerLineUpserted)
		defer func() {
			e.metrics.RecordPropagationDuration(TriggerLineUpserted, time.Since(start))
		}()
	}

	if line.Quantity <= 0 {
		return domain.ErrQuantityInvalid
	}

	dish, err := repos.Catalog().GetDish(line.DishID)
	if err != nil {
		return fmt.Errorf("resolve dish %s: %w", line.DishID, err)
	}

	line.UnitPrice = dish.Price
	line.LineTotal = dish.Price.Mul(decimal.NewFromInt32(line.Quantity))

	if err := repos.Orders().UpsertLine(*line); err != nil {
		return fmt.Errorf("persist line %s: %w", line.ID, err)
	}
	if e.metrics != nil {
		e.metrics.RecordLinesRecomputed(1)
	}

	return e.recomputeOrderTotal(repos, line.OrderID)
}

// OnOrderLineRemoved пересчитывает итог заказа после удаления позиции.
// Сама позиция к этому моменту уже удалена вызывающим кодом.
func (e *Engine) OnOrderLineRemoved(repos domain.Repositories, line domain.OrderLine) error {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordPropagationRun(TriggerLineRemoved)
		defer func() {
			e.metrics.RecordPropagationDuration(TriggerLineRemoved, time.Since(start))
		}()
	}

	return e.recomputeOrderTotal(repos, line.OrderID)
}

// recomputeOrderTotal суммирует LineTotal по выжившим позициям заказа и
// записывает итог. Для закрытого заказа это no-op: итог остаётся замороженным.
// Заказ без позиций получает итог 0.
func (e *Engine) recomputeOrderTotal(repos domain.Repositories, orderID string) error {
	order, err := repos.Orders().GetOrderForUpdate(orderID)
	if err != nil {
		return fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if order.Closed {
		return nil
	}

	total := decimal.Zero
	for _, line := range order.Lines {
		if !line.LineTotal.Equal(line.ExpectedTotal()) {
			// Производные поля выставляет только движок; расхождение здесь —
			// баг движка, а не ошибка пользователя.
			e.logger.WithFields(log.Fields{
				"order_id":   orderID,
				"line_id":    line.ID,
				"line_total": line.LineTotal.String(),
				"expected":   line.ExpectedTotal().String(),
			}).Error("line total does not reconcile with its snapshot")
			if e.metrics != nil {
				e.metrics.RecordViolation()
			}
			return domain.ErrConsistencyViolation
		}
		total = total.Add(line.LineTotal)
	}

	if err := repos.Orders().UpdateOrderTotal(orderID, total); err != nil {
		return fmt.Errorf("update order %s total: %w", orderID, err)
	}
	if e.metrics != nil {
		e.metrics.RecordOrderRecomputed()
	}

	return nil
}

// affectedOrderIDs возвращает уникальные ID заказов в детерминированном порядке.
func affectedOrderIDs(lines []domain.OrderLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.OrderID]; ok {
			continue
		}
		seen[line.OrderID] = struct{}{}
		ids = append(ids, line.OrderID)
	}
	sort.Strings(ids)
	return ids
}
