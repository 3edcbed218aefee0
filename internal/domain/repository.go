package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogRepository описывает требования к хранилищу каталога.
type CatalogRepository interface {
	// CreateRestaurant сохраняет новый ресторан; имя и адрес уникальны.
	CreateRestaurant(restaurant Restaurant) error
	// GetRestaurant возвращает ресторан или ErrRestaurantNotFound.
	GetRestaurant(id string) (Restaurant, error)
	// CreateCategory сохраняет новую категорию меню.
	CreateCategory(category Category) error
	// GetCategory возвращает категорию или ErrCategoryNotFound.
	GetCategory(id string) (Category, error)
	// CreateSubcategory сохраняет новую подкатегорию; категория должна существовать.
	CreateSubcategory(subcategory Subcategory) error
	// GetSubcategory возвращает подкатегорию или ErrSubcategoryNotFound.
	GetSubcategory(id string) (Subcategory, error)
	// CreateDish сохраняет новое блюдо; имя уникально, ссылки должны существовать.
	CreateDish(dish Dish) error
	// GetDish возвращает блюдо или ErrDishNotFound.
	GetDish(id string) (Dish, error)
	// UpdateDishPrice записывает новую цену блюда.
	UpdateDishPrice(dishID string, price decimal.Decimal) error
	// ListMenu возвращает проекцию меню с именами категорий, отсортированную по имени блюда.
	ListMenu() ([]MenuItem, error)
}

// OrderRepository описывает требования к хранилищу заказов и их позиций.
type OrderRepository interface {
	// CreateOrder сохраняет шапку заказа; позиции добавляются через UpsertLine.
	CreateOrder(order Order) error
	// GetOrder возвращает заказ вместе с позициями или ErrOrderNotFound.
	GetOrder(id string) (Order, error)
	// GetOrderForUpdate делает то же, что GetOrder, но захватывает эксклюзивную
	// блокировку заказа до конца текущей транзакции. Конкурентные пересчёты
	// одного заказа сериализуются; разные заказы не мешают друг другу.
	GetOrderForUpdate(id string) (Order, error)
	// UpdateOrderTotal записывает пересчитанный итог заказа.
	UpdateOrderTotal(orderID string, total decimal.Decimal) error
	// MarkOrderClosed выставляет флаг closed и статус. Флаг монотонен.
	MarkOrderClosed(orderID, status string) error
	// ListOrdersByRestaurant возвращает заказы ресторана, новые первыми.
	ListOrdersByRestaurant(restaurantID string, limit int) ([]Order, error)
	// UpsertLine вставляет позицию или перезаписывает её по ID.
	UpsertLine(line OrderLine) error
	// GetLine возвращает позицию или ErrOrderLineNotFound.
	GetLine(id string) (OrderLine, error)
	// DeleteLine удаляет позицию; пересчёт итога остаётся за вызывающим.
	DeleteLine(id string) error
	// ListLinesByOrder возвращает позиции заказа в порядке добавления.
	ListLinesByOrder(orderID string) ([]OrderLine, error)
	// ListLinesByDish возвращает все позиции всех заказов, ссылающиеся на блюдо.
	ListLinesByDish(dishID string) ([]OrderLine, error)
}

// Repositories — набор репозиториев, разделяющих одну границу транзакции.
type Repositories interface {
	Catalog() CatalogRepository
	Orders() OrderRepository
}

// TxRunner выполняет функцию в границах одной транзакции хранилища.
// Ошибка fn откатывает все сделанные внутри изменения: изменение цены и его
// распространение по заказам фиксируются только вместе.
type TxRunner interface {
	InTx(ctx context.Context, fn func(repos Repositories) error) error
	// Repos возвращает репозитории вне транзакции — для read-only операций.
	Repos() Repositories
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
