package store

import (
	"context"
	"errors"

	"megamart/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	CreateItem(ctx context.Context, entry domain.CatalogEntry) (*domain.CatalogEntry, error)
	GetCatalogEntry(ctx context.Context, itemID string) (*domain.CatalogEntry, error)
	ListCatalog(ctx context.Context) (domain.Catalog, error)
	SetStockLevel(ctx context.Context, itemID string, level int) error
	ConsumeStock(ctx context.Context, quantities map[string]int) error
	SetPurchaseLimit(ctx context.Context, itemID string, limit *int) error
	UpsertDiscount(ctx context.Context, discount domain.Discount) error
	DeleteDiscount(ctx context.Context, itemID string) error
	ListDiscounts(ctx context.Context) (domain.DiscountTable, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	SetCustomerVerified(ctx context.Context, customerID string, verified bool) (*domain.Customer, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
