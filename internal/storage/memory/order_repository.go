package memory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burgerchain/resto/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository.
// Шапки заказов хранятся без позиций; позиции живут в отдельной map и
// собираются при чтении заказа.
type orderRepository struct {
	access access
}

func (r *orderRepository) CreateOrder(order domain.Order) error {
	st, release := r.access.mutate()
	defer release()

	if _, exists := st.orders[order.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, ok := st.restaurants[order.RestaurantID]; !ok {
		return domain.ErrRestaurantNotFound
	}
	order.Lines = nil
	st.orders[order.ID] = order
	return nil
}

func (r *orderRepository) GetOrder(id string) (domain.Order, error) {
	st, release := r.access.view()
	defer release()

	return st.assembleOrder(id)
}

// GetOrderForUpdate в in-memory хранилище эквивалентен GetOrder: транзакции
// уже сериализованы мьютексом Store.InTx.
func (r *orderRepository) GetOrderForUpdate(id string) (domain.Order, error) {
	return r.GetOrder(id)
}

func (r *orderRepository) UpdateOrderTotal(orderID string, total decimal.Decimal) error {
	st, release := r.access.mutate()
	defer release()

	order, ok := st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.TotalPrice = total
	order.UpdatedAt = time.Now().UTC()
	st.orders[orderID] = order
	return nil
}

func (r *orderRepository) MarkOrderClosed(orderID, status string) error {
	st, release := r.access.mutate()
	defer release()

	order, ok := st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Closed = true
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	st.orders[orderID] = order
	return nil
}

func (r *orderRepository) ListOrdersByRestaurant(restaurantID string, limit int) ([]domain.Order, error) {
	st, release := r.access.view()
	defer release()

	result := make([]domain.Order, 0)
	for id, order := range st.orders {
		if order.RestaurantID != restaurantID {
			continue
		}
		assembled, err := st.assembleOrder(id)
		if err != nil {
			return nil, err
		}
		result = append(result, assembled)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *orderRepository) UpsertLine(line domain.OrderLine) error {
	st, release := r.access.mutate()
	defer release()

	if _, ok := st.orders[line.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	if _, ok := st.dishes[line.DishID]; !ok {
		return domain.ErrDishNotFound
	}
	st.lines[line.ID] = line
	return nil
}

func (r *orderRepository) GetLine(id string) (domain.OrderLine, error) {
	st, release := r.access.view()
	defer release()

	line, ok := st.lines[id]
	if !ok {
		return domain.OrderLine{}, domain.ErrOrderLineNotFound
	}
	return line, nil
}

func (r *orderRepository) DeleteLine(id string) error {
	st, release := r.access.mutate()
	defer release()

	if _, ok := st.lines[id]; !ok {
		return domain.ErrOrderLineNotFound
	}
	delete(st.lines, id)
	return nil
}

func (r *orderRepository) ListLinesByOrder(orderID string) ([]domain.OrderLine, error) {
	st, release := r.access.view()
	defer release()

	if _, ok := st.orders[orderID]; !ok {
		return nil, domain.ErrOrderNotFound
	}
	return st.linesOfOrder(orderID), nil
}

func (r *orderRepository) ListLinesByDish(dishID string) ([]domain.OrderLine, error) {
	st, release := r.access.view()
	defer release()

	result := make([]domain.OrderLine, 0)
	for _, line := range st.lines {
		if line.DishID == dishID {
			result = append(result, line)
		}
	}
	sortLines(result)
	return result, nil
}

func (s *state) assembleOrder(id string) (domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Lines = s.linesOfOrder(id)
	return order, nil
}

func (s *state) linesOfOrder(orderID string) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0)
	for _, line := range s.lines {
		if line.OrderID == orderID {
			lines = append(lines, line)
		}
	}
	sortLines(lines)
	return lines
}

// sortLines упорядочивает позиции по времени добавления, затем по ID.
func sortLines(lines []domain.OrderLine) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID < lines[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepository)(nil)
