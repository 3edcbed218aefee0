package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OrderStatusNew — статус только что созданного заказа.
	OrderStatusNew = "New"
	// OrderStatusClosed — статус закрытого заказа; итог заморожен.
	OrderStatusClosed = "Closed"
)

// OrderLine представляет одну позицию заказа: блюдо и количество.
// UnitPrice и LineTotal — производные поля, их выставляет только движок
// согласованности, никогда вызывающий код.
type OrderLine struct {
	ID      string
	OrderID string
	DishID  string
	// Quantity — количество порций, строго положительное.
	Quantity int32
	// UnitPrice — снапшот цены блюда на момент последнего пересчёта.
	UnitPrice decimal.Decimal
	// LineTotal = UnitPrice × Quantity.
	LineTotal decimal.Decimal
	CreatedAt time.Time
}

// ExpectedTotal возвращает сумму по позиции, вычисленную из снапшота цены.
func (l OrderLine) ExpectedTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// Order агрегирует заказ и его позиции.
type Order struct {
	ID           string
	Operator     string
	RestaurantID string
	// TotalPrice — производное поле: сумма LineTotal по позициям открытого
	// заказа. После закрытия заказа значение заморожено.
	TotalPrice decimal.Decimal
	Status     string
	// Closed монотонен: false→true, назад не переводится.
	Closed    bool
	Lines     []OrderLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Operator == "" {
		errs = append(errs, ErrOperatorRequired)
	}
	if o.RestaurantID == "" {
		errs = append(errs, ErrRestaurantRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.TotalPrice.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: snapshot × qty.
	total := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrDishPriceNegative)
		}
		if !line.LineTotal.Equal(line.ExpectedTotal()) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		total = total.Add(line.LineTotal)
	}
	if !total.Equal(o.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
