package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/burgerchain/resto/internal/domain"
)

// dbtx покрывает общие методы *sql.DB и *sql.Tx: репозитории работают
// одинаково и внутри транзакции, и напрямую через пул.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	q   dbtx
	ctx context.Context
}

func (r repositories) Catalog() domain.CatalogRepository {
	return &catalogRepository{q: r.q, ctx: r.ctx}
}

func (r repositories) Orders() domain.OrderRepository {
	return &orderRepository{q: r.q, ctx: r.ctx}
}

// InTx выполняет fn внутри одной SQL-транзакции. Любая ошибка fn откатывает
// все сделанные внутри записи; блокировки строк (`SELECT ... FOR UPDATE`)
// держатся до коммита или отката.
func (s *Store) InTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repositories{q: tx, ctx: ctx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Repos возвращает репозитории поверх пула соединений, вне транзакции.
// Подходит только для чтения и одиночных записей.
func (s *Store) Repos() domain.Repositories {
	return repositories{q: s.db, ctx: context.Background()}
}

var _ domain.TxRunner = (*Store)(nil)
