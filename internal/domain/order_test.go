package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validOrder() Order {
	now := time.Now().UTC()
	price := decimal.RequireFromString("5.00")
	return Order{
		ID:           "order-1",
		Operator:     "Ivan Petrov",
		RestaurantID: "rest-1",
		TotalPrice:   decimal.RequireFromString("10.00"),
		Status:       OrderStatusNew,
		Lines: []OrderLine{
			{
				ID:        "line-1",
				OrderID:   "order-1",
				DishID:    "dish-1",
				Quantity:  2,
				UnitPrice: price,
				LineTotal: price.Mul(decimal.NewFromInt(2)),
				CreatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrder_ValidateInvariants_OK(t *testing.T) {
	order := validOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_MissingFields(t *testing.T) {
	order := validOrder()
	order.Operator = ""
	order.RestaurantID = ""
	order.Lines = nil
	order.TotalPrice = decimal.Zero

	errs := order.ValidateInvariants()
	for _, want := range []error{ErrOperatorRequired, ErrRestaurantRequired, ErrLinesRequired} {
		if !containsErr(errs, want) {
			t.Fatalf("expected %v in %v", want, errs)
		}
	}
}

func TestOrder_ValidateInvariants_TotalMismatch(t *testing.T) {
	order := validOrder()
	order.TotalPrice = decimal.RequireFromString("9.99")

	if errs := order.ValidateInvariants(); !containsErr(errs, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_LineTotalMismatch(t *testing.T) {
	order := validOrder()
	order.Lines[0].LineTotal = decimal.RequireFromString("11.00")
	order.TotalPrice = decimal.RequireFromString("11.00")

	if errs := order.ValidateInvariants(); !containsErr(errs, ErrLineTotalMismatch) {
		t.Fatalf("expected ErrLineTotalMismatch, got %v", errs)
	}
}

func TestOrderLine_ExpectedTotal(t *testing.T) {
	line := OrderLine{Quantity: 3, UnitPrice: decimal.RequireFromString("5.50")}
	if got := line.ExpectedTotal(); !got.Equal(decimal.RequireFromString("16.50")) {
		t.Fatalf("expected 16.50, got %s", got)
	}
}

func TestDish_ValidateInvariants(t *testing.T) {
	dish := Dish{Name: "Classic Burger", Price: decimal.RequireFromString("5.00"), CategoryID: "cat-1", SubcategoryID: "sub-1"}
	if errs := dish.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	dish.Price = decimal.RequireFromString("-1.00")
	dish.Name = ""
	errs := dish.ValidateInvariants()
	if !containsErr(errs, ErrDishPriceNegative) || !containsErr(errs, ErrDishNameRequired) {
		t.Fatalf("expected price and name errors, got %v", errs)
	}
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
