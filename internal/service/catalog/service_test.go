package catalogsvc_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/burgerchain/resto/internal/consistency"
	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/messaging/kafka"
	catalogsvc "github.com/burgerchain/resto/internal/service/catalog"
	ordersvc "github.com/burgerchain/resto/internal/service/order"
	"github.com/burgerchain/resto/internal/storage/memory"
)

type recordedEvent struct {
	topic string
	key   string
	event interface{}
}

type fakePublisher struct {
	events []recordedEvent
}

func (f *fakePublisher) PublishEvent(topic, key string, event interface{}) error {
	f.events = append(f.events, recordedEvent{topic: topic, key: key, event: event})
	return nil
}

type catalogFixture struct {
	store     *memory.Store
	publisher *fakePublisher
	svc       *catalogsvc.Service
	orders    *ordersvc.Service
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()

	logger := logrus.New().WithField("component", "catalog-service-test")
	store := memory.NewStore()
	publisher := &fakePublisher{}
	engine := consistency.NewWithoutMetrics(logger)

	return &catalogFixture{
		store:     store,
		publisher: publisher,
		svc:       catalogsvc.NewService(store, engine, publisher, logger),
		orders:    ordersvc.NewService(store, memory.NewTimelineRepository(), engine, nil, logger),
	}
}

func (f *catalogFixture) buildMenu(t *testing.T) (domain.Restaurant, domain.Dish) {
	t.Helper()

	ctx := context.Background()
	restaurant, err := f.svc.CreateRestaurant(ctx, "Burger Central", "Tverskaya 1")
	require.NoError(t, err)
	category, err := f.svc.CreateCategory(ctx, "Burgers")
	require.NoError(t, err)
	subcategory, err := f.svc.CreateSubcategory(ctx, category.ID, "Beef")
	require.NoError(t, err)
	dish, err := f.svc.CreateDish(ctx, "Classic Burger", decimal.RequireFromString("5.00"), category.ID, subcategory.ID)
	require.NoError(t, err)

	return restaurant, dish
}

func TestService_CreateCatalogEntities(t *testing.T) {
	f := newCatalogFixture(t)
	restaurant, dish := f.buildMenu(t)

	require.NotEmpty(t, restaurant.ID)
	require.NotEmpty(t, dish.ID)
	require.True(t, dish.Price.Equal(decimal.RequireFromString("5.00")))

	got, err := f.svc.GetDish(context.Background(), dish.ID)
	require.NoError(t, err)
	require.Equal(t, dish.Name, got.Name)
}

func TestService_Create_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRestaurant(ctx, "", "Tverskaya 1")
	require.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.svc.CreateCategory(ctx, "")
	require.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.svc.CreateSubcategory(ctx, "", "Beef")
	require.ErrorIs(t, err, domain.ErrCategoryRequired)

	_, err = f.svc.CreateDish(ctx, "", decimal.RequireFromString("5.00"), "cat-1", "sub-1")
	require.ErrorIs(t, err, domain.ErrDishNameRequired)

	_, err = f.svc.CreateDish(ctx, "Burger", decimal.RequireFromString("-1.00"), "cat-1", "sub-1")
	require.ErrorIs(t, err, domain.ErrDishPriceNegative)
}

func TestService_Create_NameConflict(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRestaurant(ctx, "Burger Central", "Tverskaya 1")
	require.NoError(t, err)
	_, err = f.svc.CreateRestaurant(ctx, "Burger Central", "Arbat 2")
	require.ErrorIs(t, err, domain.ErrNameConflict)
}

func TestService_SetDishPrice_PropagatesToOpenOrders(t *testing.T) {
	f := newCatalogFixture(t)
	restaurant, dish := f.buildMenu(t)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, "ivan", restaurant.ID, []ordersvc.Item{{DishID: dish.ID, Quantity: 2}})
	require.NoError(t, err)
	require.True(t, order.TotalPrice.Equal(decimal.RequireFromString("10.00")))

	updated, err := f.svc.SetDishPrice(ctx, dish.ID, decimal.RequireFromString("6.00"))
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(decimal.RequireFromString("6.00")))

	reloaded, _, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloaded.TotalPrice.Equal(decimal.RequireFromString("12.00")), "total: %s", reloaded.TotalPrice)

	// Событие каталога опубликовано после коммита.
	require.Len(t, f.publisher.events, 1)
	require.Equal(t, kafka.TopicCatalogEvents, f.publisher.events[0].topic)
	priceEvent, ok := f.publisher.events[0].event.(*kafka.DishPriceChangedEvent)
	require.True(t, ok)
	require.Equal(t, "5.00", priceEvent.OldPrice)
	require.Equal(t, "6.00", priceEvent.NewPrice)
}

func TestService_SetDishPrice_Rejections(t *testing.T) {
	f := newCatalogFixture(t)
	_, dish := f.buildMenu(t)
	ctx := context.Background()

	_, err := f.svc.SetDishPrice(ctx, dish.ID, decimal.RequireFromString("-0.01"))
	require.ErrorIs(t, err, domain.ErrDishPriceNegative)

	_, err = f.svc.SetDishPrice(ctx, "dish-404", decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, domain.ErrDishNotFound)

	require.Empty(t, f.publisher.events)
}

func TestService_GetMenu(t *testing.T) {
	f := newCatalogFixture(t)
	_, dish := f.buildMenu(t)
	ctx := context.Background()

	menu, err := f.svc.GetMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menu, 1)
	require.Equal(t, dish.ID, menu[0].DishID)
	require.Equal(t, "Classic Burger", menu[0].Name)
	require.Equal(t, "Burgers", menu[0].Category)
	require.Equal(t, "Beef", menu[0].Subcategory)
	require.True(t, menu[0].Price.Equal(decimal.RequireFromString("5.00")))
}
