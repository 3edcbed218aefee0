package postgres

import (
	"context"
	"testing"
	"time"
)

func TestStoreIntegration_PingAndSchema(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version == 0 || count == 0 {
		t.Fatalf("expected applied migrations, got version=%d count=%d", version, count)
	}
}
