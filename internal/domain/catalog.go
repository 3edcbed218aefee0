package domain

import "github.com/shopspring/decimal"

// Restaurant — точка сети, к которой привязываются заказы.
type Restaurant struct {
	ID      string
	Name    string
	Address string
}

// Category — категория меню (например, "Бургеры").
type Category struct {
	ID   string
	Name string
}

// Subcategory — подкатегория внутри категории.
type Subcategory struct {
	ID         string
	CategoryID string
	Name       string
}

// Dish — позиция меню с текущей ценой.
// Цена изменяемая; именно её изменение запускает пересчёт снапшотов.
type Dish struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	CategoryID    string
	SubcategoryID string
}

// ValidateInvariants проверяет базовые инварианты блюда и возвращает список замечаний.
func (d *Dish) ValidateInvariants() []error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, ErrDishNameRequired)
	}
	if d.Price.IsNegative() {
		errs = append(errs, ErrDishPriceNegative)
	}
	if d.CategoryID == "" {
		errs = append(errs, ErrCategoryRequired)
	}
	if d.SubcategoryID == "" {
		errs = append(errs, ErrSubcategoryRequired)
	}

	return errs
}

// MenuItem — строка read-only проекции меню для API.
type MenuItem struct {
	DishID      string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
}
