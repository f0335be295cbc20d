package postgres

import (
	"context"
	"os"
	"testing"
)

// openTest connects to POSTGRES_TEST_DSN or skips.
func openTest(t *testing.T) *Slot {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	s, err := Open(dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	_ = s.Remove(ctx, "test-k")

	if _, found, err := s.Get(ctx, "test-k"); found || err != nil {
		t.Fatalf("expected absent key, found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "test-k", `[{"id":"a"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "test-k", `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, found, err := s.Get(ctx, "test-k")
	if err != nil || !found || v != `[]` {
		t.Fatalf("expected [], got %q found=%v err=%v", v, found, err)
	}
	if err := s.Remove(ctx, "test-k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected up and down migration, got %d files", len(entries))
	}
}
