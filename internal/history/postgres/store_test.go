package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/history/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VOXPASTE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOXPASTE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOXPASTE_TEST_POSTGRES_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] on a clean schema and closes
// it when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS utterance_log`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	pool.Close()

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestNewStore_BadDSN(t *testing.T) {
	t.Parallel()
	if _, err := postgres.NewStore(context.Background(), "://not a dsn"); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}

// Integration tests share one table, so they run sequentially.

func TestStore_AppendRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)

	for i, text := range []string{"first", "second", "third"} {
		err := store.Append(ctx, history.Entry{
			SessionID: "s1",
			Text:      text,
			RawText:   " " + text,
			Action:    "insert",
			Provider:  "mock",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Duration:  1500 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Text != "second" || got[1].Text != "third" {
		t.Fatalf("Recent(2) = %+v", got)
	}
	if got[1].RawText != " third" || got[1].Duration != 1500*time.Millisecond {
		t.Errorf("round trip lost fields: %+v", got[1])
	}
	if !got[0].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, base.Add(time.Second))
	}
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Append(ctx, history.Entry{SessionID: "a", Text: "deploy to kubernetes", Action: "insert"})
	_ = store.Append(ctx, history.Entry{SessionID: "b", Text: "kubernetes cluster down", Action: "insert"})
	_ = store.Append(ctx, history.Entry{SessionID: "b", Text: "stop", Action: "stop"})

	got, err := store.Search(ctx, "kubernetes", history.SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("full-text hits = %d, want 2", len(got))
	}

	got, _ = store.Search(ctx, "", history.SearchOpts{SessionID: "b", Limit: 1})
	if len(got) != 1 || got[0].SessionID != "b" {
		t.Errorf("filtered search = %+v", got)
	}
}
