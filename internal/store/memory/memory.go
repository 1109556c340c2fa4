package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"megamart/backend/internal/domain"
	"megamart/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	catalog         map[string]domain.CatalogEntry
	discounts       map[string]domain.Discount
	customers       map[string]domain.Customer
	transactions    map[string]*domain.Transaction
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func intPtr(v int) *int {
	return &v
}

func NewSeeded() *Store {
	wineLimit := intPtr(6)
	tobaccoLimit := intPtr(2)

	catalog := map[string]domain.CatalogEntry{
		"ITM-BREAD-01": {
			Item:       domain.Item{ID: "ITM-BREAD-01", Name: "Sourdough Loaf", OriginalPrice: money("4.50"), Categories: []string{"bakery"}},
			StockLevel: 40,
		},
		"ITM-MILK-01": {
			Item:       domain.Item{ID: "ITM-MILK-01", Name: "Milk 2L", OriginalPrice: money("3.10"), Categories: []string{"dairy"}},
			StockLevel: 60,
		},
		"ITM-RICE-01": {
			Item:       domain.Item{ID: "ITM-RICE-01", Name: "Jasmine Rice 5kg", OriginalPrice: money("16.00"), Categories: []string{"grocery"}},
			StockLevel: 25,
		},
		"ITM-CHOC-01": {
			Item:       domain.Item{ID: "ITM-CHOC-01", Name: "Dark Chocolate Bar", OriginalPrice: money("4.00"), Categories: []string{"snack"}},
			StockLevel: 80,
		},
		"ITM-WINE-01": {
			Item:          domain.Item{ID: "ITM-WINE-01", Name: "Shiraz 750ml", OriginalPrice: money("24.00"), Categories: []string{"alcohol", "beverage"}},
			StockLevel:    30,
			PurchaseLimit: wineLimit,
		},
		"ITM-CIG-01": {
			Item:          domain.Item{ID: "ITM-CIG-01", Name: "Cigarettes 20pk", OriginalPrice: money("32.00"), Categories: []string{"Tobacco"}},
			StockLevel:    20,
			PurchaseLimit: tobaccoLimit,
		},
		"ITM-KNIFE-01": {
			Item:       domain.Item{ID: "ITM-KNIFE-01", Name: "Chef Knife 20cm", OriginalPrice: money("45.00"), Categories: []string{"Knives", "kitchen"}},
			StockLevel: 10,
		},
	}

	discounts := map[string]domain.Discount{
		"ITM-CHOC-01": {Type: domain.DiscountPercentage, Value: money("25"), ItemID: "ITM-CHOC-01"},
		"ITM-RICE-01": {Type: domain.DiscountFlat, Value: money("1.50"), ItemID: "ITM-RICE-01"},
	}

	deliveryDistance := money("8")
	customers := map[string]domain.Customer{
		"CUST-ADULT-01": {
			ID:                 "CUST-ADULT-01",
			Name:               "Dana Whitfield",
			DateOfBirth:        "01/08/1990",
			IDVerified:         true,
			DeliveryDistanceKM: &deliveryDistance,
		},
		"CUST-MINOR-01": {
			ID:          "CUST-MINOR-01",
			Name:        "Riley Park",
			DateOfBirth: "01/08/2010",
			IDVerified:  true,
		},
		"CUST-UNVER-01": {
			ID:          "CUST-UNVER-01",
			Name:        "Sam Okafor",
			DateOfBirth: "14/02/1985",
			IDVerified:  false,
		},
	}

	return &Store{
		catalog:         catalog,
		discounts:       discounts,
		customers:       customers,
		transactions:    make(map[string]*domain.Transaction),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func New() *Store {
	return &Store{
		catalog:         make(map[string]domain.CatalogEntry),
		discounts:       make(map[string]domain.Discount),
		customers:       make(map[string]domain.Customer),
		transactions:    make(map[string]*domain.Transaction),
		auditLogs:       make([]domain.AuditLog, 0, 16),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func (s *Store) CreateItem(_ context.Context, entry domain.CatalogEntry) (*domain.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Item.ID == "" || entry.Item.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	if entry.Item.OriginalPrice.IsNegative() || entry.StockLevel < 0 {
		return nil, store.ErrInvalidArgument
	}
	if entry.PurchaseLimit != nil && *entry.PurchaseLimit < 1 {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.catalog[entry.Item.ID]; exists {
		return nil, store.ErrConflict
	}

	s.catalog[entry.Item.ID] = entry
	created := entry
	return &created, nil
}

func (s *Store) GetCatalogEntry(_ context.Context, itemID string) (*domain.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.catalog[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := entry
	return &found, nil
}

func (s *Store) ListCatalog(_ context.Context) (domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := make(domain.Catalog, len(s.catalog))
	for id, entry := range s.catalog {
		catalog[id] = entry
	}
	return catalog, nil
}

func (s *Store) SetStockLevel(_ context.Context, itemID string, level int) error {
	if level < 0 {
		return store.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.catalog[itemID]
	if !exists {
		return store.ErrNotFound
	}
	entry.StockLevel = level
	s.catalog[itemID] = entry
	return nil
}

func (s *Store) ConsumeStock(_ context.Context, quantities map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for itemID, qty := range quantities {
		if qty < 1 {
			return store.ErrInvalidArgument
		}
		entry, exists := s.catalog[itemID]
		if !exists {
			return store.ErrNotFound
		}
		if entry.StockLevel < qty {
			return store.ErrInsufficientStock
		}
	}

	for itemID, qty := range quantities {
		entry := s.catalog[itemID]
		entry.StockLevel -= qty
		s.catalog[itemID] = entry
	}
	return nil
}

func (s *Store) SetPurchaseLimit(_ context.Context, itemID string, limit *int) error {
	if limit != nil && *limit < 1 {
		return store.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.catalog[itemID]
	if !exists {
		return store.ErrNotFound
	}
	entry.PurchaseLimit = limit
	s.catalog[itemID] = entry
	return nil
}

func (s *Store) UpsertDiscount(_ context.Context, discount domain.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if discount.ItemID == "" {
		return store.ErrInvalidArgument
	}
	if _, exists := s.catalog[discount.ItemID]; !exists {
		return store.ErrNotFound
	}
	s.discounts[discount.ItemID] = discount
	return nil
}

func (s *Store) DeleteDiscount(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.discounts[itemID]; !exists {
		return store.ErrNotFound
	}
	delete(s.discounts, itemID)
	return nil
}

func (s *Store) ListDiscounts(_ context.Context) (domain.DiscountTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := make(domain.DiscountTable, len(s.discounts))
	for id, discount := range s.discounts {
		table[id] = discount
	}
	return table, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrConflict
	}

	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) SetCustomerVerified(_ context.Context, customerID string, verified bool) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.IDVerified = verified
	s.customers[customerID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.transactions[tx.ID]; exists {
		return nil, store.ErrConflict
	}

	stored := tx
	s.transactions[tx.ID] = &stored
	result := stored
	return &result, nil
}

func (s *Store) GetTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[transactionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := *tx
	return &found, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := slices.Clone(s.auditLogs)
	slices.Reverse(logs)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidArgument
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
