package memory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/burgerchain/resto/internal/domain"
)

// catalogRepository — in-memory реализация CatalogRepository.
// Уникальность имён и ссылочная целостность проверяются здесь же, чтобы
// поведение совпадало с ограничениями схемы postgres.
type catalogRepository struct {
	access access
}

func (r *catalogRepository) CreateRestaurant(restaurant domain.Restaurant) error {
	st, release := r.access.mutate()
	defer release()

	if _, exists := st.restaurants[restaurant.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range st.restaurants {
		if existing.Name == restaurant.Name || existing.Address == restaurant.Address {
			return domain.ErrNameConflict
		}
	}
	st.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r *catalogRepository) GetRestaurant(id string) (domain.Restaurant, error) {
	st, release := r.access.view()
	defer release()

	restaurant, ok := st.restaurants[id]
	if !ok {
		return domain.Restaurant{}, domain.ErrRestaurantNotFound
	}
	return restaurant, nil
}

func (r *catalogRepository) CreateCategory(category domain.Category) error {
	st, release := r.access.mutate()
	defer release()

	if _, exists := st.categories[category.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range st.categories {
		if existing.Name == category.Name {
			return domain.ErrNameConflict
		}
	}
	st.categories[category.ID] = category
	return nil
}

func (r *catalogRepository) GetCategory(id string) (domain.Category, error) {
	st, release := r.access.view()
	defer release()

	category, ok := st.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *catalogRepository) CreateSubcategory(subcategory domain.Subcategory) error {
	st, release := r.access.mutate()
	defer release()

	if _, exists := st.subcategories[subcategory.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, ok := st.categories[subcategory.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, existing := range st.subcategories {
		if existing.Name == subcategory.Name {
			return domain.ErrNameConflict
		}
	}
	st.subcategories[subcategory.ID] = subcategory
	return nil
}

func (r *catalogRepository) GetSubcategory(id string) (domain.Subcategory, error) {
	st, release := r.access.view()
	defer release()

	subcategory, ok := st.subcategories[id]
	if !ok {
		return domain.Subcategory{}, domain.ErrSubcategoryNotFound
	}
	return subcategory, nil
}

func (r *catalogRepository) CreateDish(dish domain.Dish) error {
	st, release := r.access.mutate()
	defer release()

	if _, exists := st.dishes[dish.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, ok := st.categories[dish.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if _, ok := st.subcategories[dish.SubcategoryID]; !ok {
		return domain.ErrSubcategoryNotFound
	}
	for _, existing := range st.dishes {
		if existing.Name == dish.Name {
			return domain.ErrNameConflict
		}
	}
	st.dishes[dish.ID] = dish
	return nil
}

func (r *catalogRepository) GetDish(id string) (domain.Dish, error) {
	st, release := r.access.view()
	defer release()

	dish, ok := st.dishes[id]
	if !ok {
		return domain.Dish{}, domain.ErrDishNotFound
	}
	return dish, nil
}

func (r *catalogRepository) UpdateDishPrice(dishID string, price decimal.Decimal) error {
	st, release := r.access.mutate()
	defer release()

	dish, ok := st.dishes[dishID]
	if !ok {
		return domain.ErrDishNotFound
	}
	dish.Price = price
	st.dishes[dishID] = dish
	return nil
}

func (r *catalogRepository) ListMenu() ([]domain.MenuItem, error) {
	st, release := r.access.view()
	defer release()

	menu := make([]domain.MenuItem, 0, len(st.dishes))
	for _, dish := range st.dishes {
		item := domain.MenuItem{
			DishID: dish.ID,
			Name:   dish.Name,
			Price:  dish.Price,
		}
		if category, ok := st.categories[dish.CategoryID]; ok {
			item.Category = category.Name
		}
		if subcategory, ok := st.subcategories[dish.SubcategoryID]; ok {
			item.Subcategory = subcategory.Name
		}
		menu = append(menu, item)
	}

	sort.Slice(menu, func(i, j int) bool { return menu[i].Name < menu[j].Name })
	return menu, nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
