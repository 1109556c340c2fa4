package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"megamart/backend/internal/store"
)

func TestConsumeStockDecrementsAtomically(t *testing.T) {
	databaseURL := os.Getenv("MEGAMART_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MEGAMART_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("ITM-STOCK-IT-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, original_price, categories, stock_level, purchase_limit, created_at, updated_at)
		VALUES ($1, 'Stock IT Item', 4.50, '["bakery"]', 10, null, now(), now())
	`, itemID); err != nil {
		t.Fatalf("insert item: %v", err)
	}

	if err := s.ConsumeStock(ctx, map[string]int{itemID: 4}); err != nil {
		t.Fatalf("consume stock: %v", err)
	}

	var level int
	if err := s.db.QueryRowContext(ctx, `
		SELECT stock_level
		FROM items
		WHERE id = $1
	`, itemID).Scan(&level); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if level != 6 {
		t.Fatalf("expected stock 6 after consume, got %d", level)
	}

	err = s.ConsumeStock(ctx, map[string]int{itemID: 7})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT stock_level
		FROM items
		WHERE id = $1
	`, itemID).Scan(&level); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if level != 6 {
		t.Fatalf("expected failed consume to leave stock at 6, got %d", level)
	}
}
