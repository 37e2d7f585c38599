// Package storetest provides in-memory ledger databases and fixtures for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chitieu/finbot/store"
)

// NewDB opens a private in-memory SQLite database with the ledger schema.
// The database is closed when the test finishes.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err != nil {
			t.Errorf("failed to get underlying DB for teardown: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

// NewTransactions returns a ledger backed by a fresh in-memory database.
func NewTransactions(t *testing.T) store.Transactions {
	t.Helper()
	return store.NewTransactions(NewDB(t))
}

// AddExpense inserts a transaction and fails the test on error.
func AddExpense(t *testing.T, txs store.Transactions, ownerID string, amount int64, category store.Category, date time.Time) *store.Transaction {
	t.Helper()

	tx := &store.Transaction{
		OwnerID:  ownerID,
		Amount:   amount,
		Category: category,
		Date:     date,
	}
	if err := txs.Create(context.Background(), tx); err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	return tx
}
