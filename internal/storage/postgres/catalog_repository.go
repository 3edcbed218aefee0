package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burgerchain/resto/internal/domain"
)

type catalogRepository struct {
	q   dbtx
	ctx context.Context
}

func (r *catalogRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, opTimeout)
}

func (r *catalogRepository) CreateRestaurant(restaurant domain.Restaurant) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO restaurants (id, name, address)
		VALUES ($1,$2,$3)
	`, restaurant.ID, restaurant.Name, restaurant.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		return fmt.Errorf("insert restaurant: %w", err)
	}

	return nil
}

func (r *catalogRepository) GetRestaurant(id string) (domain.Restaurant, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var restaurant domain.Restaurant
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, address
		FROM restaurants
		WHERE id = $1
	`, id).Scan(&restaurant.ID, &restaurant.Name, &restaurant.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Restaurant{}, domain.ErrRestaurantNotFound
		}
		return domain.Restaurant{}, fmt.Errorf("select restaurant: %w", err)
	}

	return restaurant, nil
}

func (r *catalogRepository) CreateCategory(category domain.Category) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, name)
		VALUES ($1,$2)
	`, category.ID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

func (r *catalogRepository) GetCategory(id string) (domain.Category, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var category domain.Category
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name
		FROM categories
		WHERE id = $1
	`, id).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}

	return category, nil
}

func (r *catalogRepository) CreateSubcategory(subcategory domain.Subcategory) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name)
		VALUES ($1,$2,$3)
	`, subcategory.ID, subcategory.CategoryID, subcategory.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("insert subcategory: %w", err)
	}

	return nil
}

func (r *catalogRepository) GetSubcategory(id string) (domain.Subcategory, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var subcategory domain.Subcategory
	err := r.q.QueryRowContext(ctx, `
		SELECT id, category_id, name
		FROM subcategories
		WHERE id = $1
	`, id).Scan(&subcategory.ID, &subcategory.CategoryID, &subcategory.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subcategory{}, domain.ErrSubcategoryNotFound
		}
		return domain.Subcategory{}, fmt.Errorf("select subcategory: %w", err)
	}

	return subcategory, nil
}

func (r *catalogRepository) CreateDish(dish domain.Dish) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO dishes (id, name, price, category_id, subcategory_id)
		VALUES ($1,$2,$3,$4,$5)
	`, dish.ID, dish.Name, dish.Price, dish.CategoryID, dish.SubcategoryID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNameConflict
		}
		if isForeignKeyViolation(err) {
			return fkTarget(err, map[string]error{
				"dishes_category_id_fkey":    domain.ErrCategoryNotFound,
				"dishes_subcategory_id_fkey": domain.ErrSubcategoryNotFound,
			})
		}
		return fmt.Errorf("insert dish: %w", err)
	}

	return nil
}

func (r *catalogRepository) GetDish(id string) (domain.Dish, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var dish domain.Dish
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, price, category_id, subcategory_id
		FROM dishes
		WHERE id = $1
	`, id).Scan(&dish.ID, &dish.Name, &dish.Price, &dish.CategoryID, &dish.SubcategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Dish{}, domain.ErrDishNotFound
		}
		return domain.Dish{}, fmt.Errorf("select dish: %w", err)
	}

	return dish, nil
}

func (r *catalogRepository) UpdateDishPrice(dishID string, price decimal.Decimal) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE dishes
		SET price = $1, updated_at = $2
		WHERE id = $3
	`, price, time.Now().UTC(), dishID)
	if err != nil {
		return fmt.Errorf("update dish price: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDishNotFound
	}

	return nil
}

func (r *catalogRepository) ListMenu() ([]domain.MenuItem, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT d.id, d.name, d.price, c.name, s.name
		FROM dishes d
		JOIN categories c ON c.id = d.category_id
		JOIN subcategories s ON s.id = d.subcategory_id
		ORDER BY d.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	menu := make([]domain.MenuItem, 0)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.DishID, &item.Name, &item.Price, &item.Category, &item.Subcategory); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		menu = append(menu, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu rows: %w", err)
	}

	return menu, nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
