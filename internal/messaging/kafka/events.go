package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated     EventType = "order.created"
	EventTypeOrderClosed      EventType = "order.closed"
	EventTypeOrderLineUpdated EventType = "order.line_updated"
	EventTypeOrderLineRemoved EventType = "order.line_removed"

	// Catalog события
	EventTypeDishPriceChanged EventType = "dish.price_changed"
)

// Topics для Kafka
const (
	TopicOrderEvents   = "resto.order.events"
	TopicCatalogEvents = "resto.catalog.events"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	Operator   string                 `json:"operator"`
	Status     string                 `json:"status"`
	TotalPrice string                 `json:"total_price"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DishPriceChangedEvent представляет событие изменения цены блюда
type DishPriceChangedEvent struct {
	EventType EventType `json:"event_type"`
	DishID    string    `json:"dish_id"`
	OldPrice  string    `json:"old_price"`
	NewPrice  string    `json:"new_price"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, operator, status, totalPrice string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		Operator:   operator,
		Status:     status,
		TotalPrice: totalPrice,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewDishPriceChangedEvent создает событие изменения цены блюда
func NewDishPriceChangedEvent(dishID, oldPrice, newPrice string) *DishPriceChangedEvent {
	return &DishPriceChangedEvent{
		EventType: EventTypeDishPriceChanged,
		DishID:    dishID,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
		Timestamp: time.Now(),
	}
}
