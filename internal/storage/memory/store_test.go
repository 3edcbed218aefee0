package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/storage/memory"
)

func seedCatalog(t *testing.T, store *memory.Store) (domain.Restaurant, domain.Dish) {
	t.Helper()

	catalog := store.Repos().Catalog()
	restaurant := domain.Restaurant{ID: "rest-1", Name: "Burger Central", Address: "Tverskaya 1"}
	if err := catalog.CreateRestaurant(restaurant); err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	if err := catalog.CreateCategory(domain.Category{ID: "cat-1", Name: "Burgers"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := catalog.CreateSubcategory(domain.Subcategory{ID: "sub-1", CategoryID: "cat-1", Name: "Beef"}); err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	dish := domain.Dish{
		ID:            "dish-1",
		Name:          "Classic Burger",
		Price:         decimal.RequireFromString("5.00"),
		CategoryID:    "cat-1",
		SubcategoryID: "sub-1",
	}
	if err := catalog.CreateDish(dish); err != nil {
		t.Fatalf("create dish: %v", err)
	}
	return restaurant, dish
}

func newOrder(restaurantID string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:           "order-1",
		Operator:     "Ivan Petrov",
		RestaurantID: restaurantID,
		TotalPrice:   decimal.Zero,
		Status:       domain.OrderStatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_CreateGetOrder(t *testing.T) {
	store := memory.NewStore()
	restaurant, dish := seedCatalog(t, store)

	orders := store.Repos().Orders()
	order := newOrder(restaurant.ID)
	if err := orders.CreateOrder(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	line := domain.OrderLine{
		ID:        "line-1",
		OrderID:   order.ID,
		DishID:    dish.ID,
		Quantity:  2,
		UnitPrice: dish.Price,
		LineTotal: dish.Price.Mul(decimal.NewFromInt(2)),
		CreatedAt: time.Now().UTC(),
	}
	if err := orders.UpsertLine(line); err != nil {
		t.Fatalf("upsert line: %v", err)
	}

	stored, err := orders.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(stored.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(stored.Lines))
	}
	if !stored.Lines[0].LineTotal.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected line total 10.00, got %s", stored.Lines[0].LineTotal)
	}
}

func TestStore_CreateOrder_UnknownRestaurant(t *testing.T) {
	store := memory.NewStore()
	order := newOrder("missing")

	err := store.Repos().Orders().CreateOrder(order)
	if !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestStore_UpsertLine_UnknownDish(t *testing.T) {
	store := memory.NewStore()
	restaurant, _ := seedCatalog(t, store)

	orders := store.Repos().Orders()
	if err := orders.CreateOrder(newOrder(restaurant.ID)); err != nil {
		t.Fatalf("create order: %v", err)
	}

	err := orders.UpsertLine(domain.OrderLine{ID: "line-1", OrderID: "order-1", DishID: "missing", Quantity: 1})
	if !errors.Is(err, domain.ErrDishNotFound) {
		t.Fatalf("expected ErrDishNotFound, got %v", err)
	}
}

func TestStore_DishNameConflict(t *testing.T) {
	store := memory.NewStore()
	seedCatalog(t, store)

	err := store.Repos().Catalog().CreateDish(domain.Dish{
		ID:            "dish-2",
		Name:          "Classic Burger",
		Price:         decimal.RequireFromString("7.00"),
		CategoryID:    "cat-1",
		SubcategoryID: "sub-1",
	})
	if !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestStore_InTx_RollbackOnError(t *testing.T) {
	store := memory.NewStore()
	restaurant, dish := seedCatalog(t, store)

	boom := errors.New("boom")
	err := store.InTx(context.Background(), func(repos domain.Repositories) error {
		if err := repos.Orders().CreateOrder(newOrder(restaurant.ID)); err != nil {
			return err
		}
		if err := repos.Orders().UpsertLine(domain.OrderLine{
			ID: "line-1", OrderID: "order-1", DishID: dish.ID, Quantity: 1,
			UnitPrice: dish.Price, LineTotal: dish.Price,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Repos().Orders().GetOrder("order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected rollback to remove order, got %v", err)
	}
	if _, err := store.Repos().Orders().GetLine("line-1"); !errors.Is(err, domain.ErrOrderLineNotFound) {
		t.Fatalf("expected rollback to remove line, got %v", err)
	}
}

func TestStore_InTx_CommitKeepsChanges(t *testing.T) {
	store := memory.NewStore()
	restaurant, _ := seedCatalog(t, store)

	err := store.InTx(context.Background(), func(repos domain.Repositories) error {
		return repos.Orders().CreateOrder(newOrder(restaurant.ID))
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	if _, err := store.Repos().Orders().GetOrder("order-1"); err != nil {
		t.Fatalf("expected order to persist, got %v", err)
	}
}

func TestStore_InTx_ReaderSeesOnlyCommittedState(t *testing.T) {
	store := memory.NewStore()
	restaurant, dish := seedCatalog(t, store)

	midTx := make(chan struct{})
	readDone := make(chan error, 1)

	go func() {
		<-midTx
		_, err := store.Repos().Orders().GetOrder("order-1")
		readDone <- err
	}()

	err := store.InTx(context.Background(), func(repos domain.Repositories) error {
		if err := repos.Orders().CreateOrder(newOrder(restaurant.ID)); err != nil {
			return err
		}

		// Заказ создан, но позиции ещё нет: внешний читатель не должен
		// видеть недостроенный заказ.
		close(midTx)
		if err := <-readDone; !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("reader inside tx window: expected ErrOrderNotFound, got %v", err)
		}

		return repos.Orders().UpsertLine(domain.OrderLine{
			ID: "line-1", OrderID: "order-1", DishID: dish.ID, Quantity: 2,
			UnitPrice: dish.Price, LineTotal: dish.Price.Mul(decimal.NewFromInt(2)),
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	stored, err := store.Repos().Orders().GetOrder("order-1")
	if err != nil {
		t.Fatalf("get order after commit: %v", err)
	}
	if len(stored.Lines) != 1 {
		t.Fatalf("expected committed order with 1 line, got %d", len(stored.Lines))
	}
}

func TestStore_MarkOrderClosed(t *testing.T) {
	store := memory.NewStore()
	restaurant, _ := seedCatalog(t, store)

	orders := store.Repos().Orders()
	if err := orders.CreateOrder(newOrder(restaurant.ID)); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := orders.MarkOrderClosed("order-1", domain.OrderStatusClosed); err != nil {
		t.Fatalf("close order: %v", err)
	}

	stored, err := orders.GetOrder("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !stored.Closed || stored.Status != domain.OrderStatusClosed {
		t.Fatalf("expected closed order, got closed=%v status=%s", stored.Closed, stored.Status)
	}
}

func TestStore_ListLinesByDish(t *testing.T) {
	store := memory.NewStore()
	restaurant, dish := seedCatalog(t, store)

	orders := store.Repos().Orders()
	if err := orders.CreateOrder(newOrder(restaurant.ID)); err != nil {
		t.Fatalf("create order: %v", err)
	}
	second := newOrder(restaurant.ID)
	second.ID = "order-2"
	if err := orders.CreateOrder(second); err != nil {
		t.Fatalf("create order: %v", err)
	}

	for i, orderID := range []string{"order-1", "order-2"} {
		line := domain.OrderLine{
			ID: "line-" + orderID, OrderID: orderID, DishID: dish.ID, Quantity: int32(i + 1),
			UnitPrice: dish.Price, LineTotal: dish.Price.Mul(decimal.NewFromInt(int64(i + 1))),
			CreatedAt: time.Now().UTC(),
		}
		if err := orders.UpsertLine(line); err != nil {
			t.Fatalf("upsert line: %v", err)
		}
	}

	lines, err := orders.ListLinesByDish(dish.ID)
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestStore_ListMenu(t *testing.T) {
	store := memory.NewStore()
	seedCatalog(t, store)

	menu, err := store.Repos().Catalog().ListMenu()
	if err != nil {
		t.Fatalf("list menu: %v", err)
	}
	if len(menu) != 1 {
		t.Fatalf("expected 1 item, got %d", len(menu))
	}
	item := menu[0]
	if item.Name != "Classic Burger" || item.Category != "Burgers" || item.Subcategory != "Beef" {
		t.Fatalf("unexpected menu item: %+v", item)
	}
}
