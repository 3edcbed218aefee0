package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/consistency"
	"github.com/burgerchain/resto/internal/domain"
)

// Пересчёт открытых заказов при изменении цены, прогнанный через настоящие
// SQL-транзакции и блокировки строк.
func TestPropagationIntegration_PriceChange(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	dish := seedCatalogForIntegrationTest(t, store)
	createOrderForIntegrationTest(t, store, "order-open")
	createOrderForIntegrationTest(t, store, "order-closed")

	if err := store.Repos().Orders().MarkOrderClosed("order-closed", domain.OrderStatusClosed); err != nil {
		t.Fatalf("close order: %v", err)
	}

	engine := consistency.NewWithoutMetrics(logrus.New().WithField("component", "propagation-test"))
	newPrice := decimal.RequireFromString("6.00")

	err := store.InTx(context.Background(), func(repos domain.Repositories) error {
		if err := repos.Catalog().UpdateDishPrice(dish.ID, newPrice); err != nil {
			return err
		}
		dish.Price = newPrice
		return engine.OnDishPriceChanged(repos, dish)
	})
	if err != nil {
		t.Fatalf("propagate price change: %v", err)
	}

	open, err := store.Repos().Orders().GetOrder("order-open")
	if err != nil {
		t.Fatalf("get open order: %v", err)
	}
	if !open.TotalPrice.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("open order total not recomputed: %s", open.TotalPrice)
	}
	if !open.Lines[0].UnitPrice.Equal(newPrice) {
		t.Fatalf("open order snapshot not rewritten: %s", open.Lines[0].UnitPrice)
	}

	closed, err := store.Repos().Orders().GetOrder("order-closed")
	if err != nil {
		t.Fatalf("get closed order: %v", err)
	}
	if !closed.TotalPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("closed order total changed: %s", closed.TotalPrice)
	}
	if !closed.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("closed order snapshot changed: %s", closed.Lines[0].UnitPrice)
	}
}

// Два конкурирующих триггера на одном заказе: изменение количества и изменение
// цены. Блокировка строки заказа сериализует пересчёты, поэтому итог обязан
// отразить обе мутации независимо от порядка коммитов.
func TestPropagationIntegration_ConcurrentQuantityAndPriceChange(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	dish := seedCatalogForIntegrationTest(t, store)
	order := createOrderForIntegrationTest(t, store, "order-race")

	engine := consistency.NewWithoutMetrics(logrus.New().WithField("component", "propagation-test"))
	lineID := order.Lines[0].ID
	newPrice := decimal.RequireFromString("6.00")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	// Количество 2 -> 3 (путь сервиса: сначала блокировка заказа, затем upsert).
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- store.InTx(context.Background(), func(repos domain.Repositories) error {
			locked, err := repos.Orders().GetOrderForUpdate("order-race")
			if err != nil {
				return err
			}
			for _, line := range locked.Lines {
				if line.ID != lineID {
					continue
				}
				line.Quantity = 3
				return engine.OnOrderLineUpserted(repos, &line)
			}
			return domain.ErrOrderLineNotFound
		})
	}()

	// Цена 5.00 -> 6.00 с распространением на открытые заказы.
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- store.InTx(context.Background(), func(repos domain.Repositories) error {
			if err := repos.Catalog().UpdateDishPrice(dish.ID, newPrice); err != nil {
				return err
			}
			changed := dish
			changed.Price = newPrice
			return engine.OnDishPriceChanged(repos, changed)
		})
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent trigger failed: %v", err)
		}
	}

	final, err := store.Repos().Orders().GetOrder("order-race")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !final.TotalPrice.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("total must reflect both mutations (3 x 6.00): %s", final.TotalPrice)
	}
	if len(final.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(final.Lines))
	}
	if final.Lines[0].Quantity != 3 {
		t.Fatalf("quantity change lost: %d", final.Lines[0].Quantity)
	}
	if !final.Lines[0].UnitPrice.Equal(newPrice) {
		t.Fatalf("price change lost: %s", final.Lines[0].UnitPrice)
	}
	if !final.Lines[0].LineTotal.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("line total not reconciled: %s", final.Lines[0].LineTotal)
	}
}
