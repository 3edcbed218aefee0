package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/health"
	"github.com/burgerchain/resto/internal/storage/memory"
	"github.com/burgerchain/resto/internal/storage/postgres"
)

// storageDeps объединяет хранилище и его служебные репозитории.
type storageDeps struct {
	tx       domain.TxRunner
	timeline domain.TimelineRepository
	idem     domain.IdempotencyRepository
	checker  health.Checker
	close    func()
}

// initStorage выбирает хранилище по конфигурации: PostgreSQL при наличии DSN,
// иначе in-memory. Для PostgreSQL схема приводится к актуальной версии.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageDeps, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("используем in-memory хранилище")
		store := memory.NewStore()
		return &storageDeps{
			tx:       store,
			timeline: memory.NewTimelineRepository(),
			idem:     memory.NewIdempotencyRepository(),
			checker:  health.NewSimpleChecker("storage", func() error { return nil }),
			close:    func() {},
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("подключились к PostgreSQL, схема актуальна")

	return &storageDeps{
		tx:       store,
		timeline: postgres.NewTimelineRepository(store),
		idem:     postgres.NewIdempotencyRepository(store),
		checker: health.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			return store.Ping(pingCtx)
		}),
		close: func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("не удалось закрыть подключение к PostgreSQL")
			}
		},
	}, nil
}
