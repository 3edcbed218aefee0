package domain

import "errors"

var (
	// Ошибка отсутствующего имени оператора.
	ErrOperatorRequired = errors.New("operator is required")
	// Ошибка отсутствующей ссылки на ресторан.
	ErrRestaurantRequired = errors.New("restaurant_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве порций (<= 0).
	ErrQuantityInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_price must be non-negative")
	// Ошибка несоответствия LineTotal и UnitPrice × Quantity.
	ErrLineTotalMismatch = errors.New("line total does not match unit price snapshot")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// Ошибка отсутствующего имени блюда.
	ErrDishNameRequired = errors.New("dish name is required")
	// Ошибка отрицательной цены блюда.
	ErrDishPriceNegative = errors.New("dish price must be non-negative")
	// Ошибка отсутствующей категории у блюда.
	ErrCategoryRequired = errors.New("category_id is required")
	// Ошибка отсутствующей подкатегории у блюда.
	ErrSubcategoryRequired = errors.New("subcategory_id is required")
	// Ошибка отсутствующего имени ресторана/категории.
	ErrNameRequired = errors.New("name is required")

	// ErrRestaurantNotFound возвращается, если ресторан не найден.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrCategoryNotFound возвращается, если категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSubcategoryNotFound возвращается, если подкатегория не найдена.
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	// ErrDishNotFound возвращается, если блюдо не найдено.
	ErrDishNotFound = errors.New("dish not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderLineNotFound возвращается, если позиция заказа не найдена.
	ErrOrderLineNotFound = errors.New("order line not found")

	// ErrOrderClosed сигнализирует о попытке изменить закрытый заказ.
	ErrOrderClosed = errors.New("order is closed")
	// ErrNameConflict возвращается при нарушении уникальности имени.
	ErrNameConflict = errors.New("name is already taken")
	// ErrAlreadyExists возвращается при попытке повторно создать запись с тем же ID.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrConsistencyViolation — внутренняя ошибка: пересчитанный итог не сходится
	// с позициями. Указывает на баг движка, а не на ошибку пользователя.
	ErrConsistencyViolation = errors.New("order total does not reconcile with its lines")

	// Ошибка отсутствующего idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// Ошибка отсутствующего хэша запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound возвращается, если ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists возвращается при повторе ключа с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch возвращается при повторе ключа с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with a different request")
)

var validationErrors = []error{
	ErrOperatorRequired,
	ErrRestaurantRequired,
	ErrLinesRequired,
	ErrQuantityInvalid,
	ErrTotalNegative,
	ErrLineTotalMismatch,
	ErrTotalMismatch,
	ErrDishNameRequired,
	ErrDishPriceNegative,
	ErrCategoryRequired,
	ErrSubcategoryRequired,
	ErrNameRequired,
}

var notFoundErrors = []error{
	ErrRestaurantNotFound,
	ErrCategoryNotFound,
	ErrSubcategoryNotFound,
	ErrDishNotFound,
	ErrOrderNotFound,
	ErrOrderLineNotFound,
}

// IsValidation проверяет, относится ли ошибка к ошибкам валидации входных данных.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound проверяет, является ли ошибка отсутствием записи.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
