package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"megamart/backend/internal/cache"
	"megamart/backend/internal/checkout"
	"megamart/backend/internal/domain"
	"megamart/backend/internal/store"
	"megamart/backend/internal/xid"
)

const catalogSnapshotKey = "catalog:snapshot"

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	catalog    cache.CatalogCache
	catalogTTL time.Duration
}

func New(repo store.Repository, catalog cache.CatalogCache, catalogTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 30 * time.Second
	}

	return &Service{
		repo:       repo,
		catalog:    catalog,
		catalogTTL: catalogTTL,
	}
}

func (s *Service) ListCatalog(ctx context.Context) (domain.Catalog, error) {
	return s.repo.ListCatalog(ctx)
}

func (s *Service) GetCatalogEntry(ctx context.Context, itemID string) (*domain.CatalogEntry, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, store.ErrInvalidArgument
	}
	return s.repo.GetCatalogEntry(ctx, itemID)
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.CatalogEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CatalogEntry{}, fmt.Errorf("admin role required")
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" {
		req.ID = xid.New("itm")
	}

	if req.Name == "" || req.OriginalPrice.IsNegative() || req.InitialStock < 0 {
		return domain.CatalogEntry{}, store.ErrInvalidArgument
	}
	if req.PurchaseLimit != nil && *req.PurchaseLimit < 1 {
		return domain.CatalogEntry{}, store.ErrInvalidArgument
	}

	categories := make([]string, 0, len(req.Categories))
	for _, category := range req.Categories {
		category = strings.TrimSpace(category)
		if category != "" {
			categories = append(categories, category)
		}
	}

	entry := domain.CatalogEntry{
		Item: domain.Item{
			ID:            req.ID,
			Name:          req.Name,
			OriginalPrice: req.OriginalPrice.Round(2),
			Categories:    categories,
		},
		StockLevel:    req.InitialStock,
		PurchaseLimit: req.PurchaseLimit,
	}

	created, err := s.repo.CreateItem(ctx, entry)
	if err != nil {
		return domain.CatalogEntry{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "item_create", "item", created.Item.ID, fmt.Sprintf("name=%s,price=%s,stock=%d", created.Item.Name, created.Item.OriginalPrice.StringFixed(2), created.StockLevel))

	return *created, nil
}

func (s *Service) SetStockLevel(ctx context.Context, itemID string, req domain.StockSetRequest) (*domain.CatalogEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	itemID = strings.TrimSpace(itemID)
	if itemID == "" || req.StockLevel < 0 {
		return nil, store.ErrInvalidArgument
	}

	if err := s.repo.SetStockLevel(ctx, itemID, req.StockLevel); err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "stock_set", "item", itemID, fmt.Sprintf("stock=%d", req.StockLevel))

	return s.repo.GetCatalogEntry(ctx, itemID)
}

func (s *Service) SetPurchaseLimit(ctx context.Context, itemID string, req domain.PurchaseLimitSetRequest) (*domain.CatalogEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, store.ErrInvalidArgument
	}
	if req.PurchaseLimit != nil && *req.PurchaseLimit < 1 {
		return nil, store.ErrInvalidArgument
	}

	if err := s.repo.SetPurchaseLimit(ctx, itemID, req.PurchaseLimit); err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	detail := "limit=none"
	if req.PurchaseLimit != nil {
		detail = fmt.Sprintf("limit=%d", *req.PurchaseLimit)
	}
	s.logAudit(ctx, "purchase_limit_set", "item", itemID, detail)

	return s.repo.GetCatalogEntry(ctx, itemID)
}

func (s *Service) ListDiscounts(ctx context.Context) (domain.DiscountTable, error) {
	return s.repo.ListDiscounts(ctx)
}

func (s *Service) UpsertDiscount(ctx context.Context, req domain.DiscountUpsertRequest) (domain.Discount, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Discount{}, fmt.Errorf("admin role required")
	}

	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" {
		return domain.Discount{}, store.ErrInvalidArgument
	}

	entry, err := s.repo.GetCatalogEntry(ctx, req.ItemID)
	if err != nil {
		return domain.Discount{}, err
	}

	discount := domain.Discount{
		Type:   req.Type,
		Value:  req.Value,
		ItemID: req.ItemID,
	}

	// Dry-run the pricing rule so an out-of-range value is rejected on write
	// instead of failing every later checkout.
	trial := domain.DiscountTable{req.ItemID: discount}
	if _, err := checkout.FinalItemPrice(&entry.Item, trial); err != nil {
		return domain.Discount{}, err
	}

	if err := s.repo.UpsertDiscount(ctx, discount); err != nil {
		return domain.Discount{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "discount_upsert", "discount", req.ItemID, fmt.Sprintf("type=%s,value=%s", discount.Type, discount.Value.String()))

	return discount, nil
}

func (s *Service) DeleteDiscount(ctx context.Context, itemID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return store.ErrInvalidArgument
	}

	if err := s.repo.DeleteDiscount(ctx, itemID); err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "discount_delete", "discount", itemID, "")

	return nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)

	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidArgument
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse(checkout.DateLayout, req.DateOfBirth); err != nil {
			return domain.Customer{}, fmt.Errorf("date of birth: %w", checkout.ErrDateFormat)
		}
	}
	if req.DeliveryDistanceKM != nil && req.DeliveryDistanceKM.IsNegative() {
		return domain.Customer{}, store.ErrInvalidArgument
	}

	customer := domain.Customer{
		ID:                 xid.New("cust"),
		Name:               req.Name,
		DateOfBirth:        req.DateOfBirth,
		IDVerified:         false,
		DeliveryDistanceKM: req.DeliveryDistanceKM,
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))

	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, store.ErrInvalidArgument
	}
	return s.repo.GetCustomer(ctx, customerID)
}

// VerifyCustomer records the outcome of a counter-side identity check. A
// customer without a date of birth on file cannot be marked verified.
func (s *Service) VerifyCustomer(ctx context.Context, customerID string, verified bool) (*domain.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, store.ErrInvalidArgument
	}

	existing, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if verified && existing.DateOfBirth == "" {
		return nil, store.ErrInvalidArgument
	}

	updated, err := s.repo.SetCustomerVerified(ctx, customerID, verified)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "customer_verify", "customer", customerID, fmt.Sprintf("verified=%t", verified))

	return updated, nil
}

// Checkout runs the full rule pipeline against a catalog snapshot, then
// persists the transaction and consumes stock. Validation failures leave the
// store untouched.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if len(req.Lines) == 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidArgument
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.ItemID) == "" || line.Quantity < 1 {
			return domain.CheckoutResponse{}, store.ErrInvalidArgument
		}
	}

	snapshot, err := s.catalogSnapshot(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	var customer *domain.Customer
	if req.CustomerID != "" {
		customer, err = s.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
	}

	now := time.Now().UTC()
	if req.Date == "" {
		req.Date = now.Format(checkout.DateLayout)
	}
	if req.Time == "" {
		req.Time = now.Format("15:04")
	}

	tx := &domain.Transaction{
		ID:             xid.New("tx"),
		Date:           req.Date,
		Time:           req.Time,
		Customer:       customer,
		PaymentMethod:  req.PaymentMethod,
		FulfilmentType: req.FulfilmentType,
		Lines:          make([]domain.TransactionLine, 0, len(req.Lines)),
		CreatedAt:      now,
	}
	for _, line := range req.Lines {
		tx.Lines = append(tx.Lines, domain.TransactionLine{
			Item:     domain.Item{ID: strings.TrimSpace(line.ItemID)},
			Quantity: line.Quantity,
		})
	}

	processed, err := checkout.Process(tx, snapshot.Catalog, snapshot.Discounts)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	quantities := make(map[string]int, len(processed.Lines))
	for _, line := range processed.Lines {
		quantities[line.Item.ID] += line.Quantity
	}
	if err := s.repo.ConsumeStock(ctx, quantities); err != nil {
		return domain.CheckoutResponse{}, err
	}

	saved, err := s.repo.CreateTransaction(ctx, *processed)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "checkout", "transaction", saved.ID, fmt.Sprintf("items=%d,total=%s", saved.TotalItemsPurchased, saved.FinalTotal.StringFixed(2)))

	return buildCheckoutResponse(saved), nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, store.ErrInvalidArgument
	}
	return s.repo.GetTransaction(ctx, transactionID)
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) catalogSnapshot(ctx context.Context) (*domain.CatalogSnapshot, error) {
	cached, hit, err := s.catalog.Get(ctx, catalogSnapshotKey)
	if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}
	if hit && cached != nil {
		return cached, nil
	}

	catalog, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	discounts, err := s.repo.ListDiscounts(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.CatalogSnapshot{Catalog: catalog, Discounts: discounts}
	if err := s.catalog.Set(ctx, catalogSnapshotKey, snapshot, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}

	return snapshot, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Delete(ctx, catalogSnapshotKey); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func buildCheckoutResponse(tx *domain.Transaction) domain.CheckoutResponse {
	lines := make([]domain.CheckoutResponseLine, 0, len(tx.Lines))
	for _, line := range tx.Lines {
		lines = append(lines, domain.CheckoutResponseLine{
			ItemID:    line.Item.ID,
			ItemName:  line.Item.Name,
			Quantity:  line.Quantity,
			FinalCost: line.FinalCost,
		})
	}

	customerID := ""
	if tx.Customer != nil {
		customerID = tx.Customer.ID
	}

	return domain.CheckoutResponse{
		TransactionID:             tx.ID,
		Date:                      tx.Date,
		Time:                      tx.Time,
		CustomerID:                customerID,
		PaymentMethod:             tx.PaymentMethod,
		FulfilmentType:            tx.FulfilmentType,
		Lines:                     lines,
		AllItemsSubtotal:          tx.AllItemsSubtotal,
		FulfilmentSurchargeAmount: tx.FulfilmentSurchargeAmount,
		RoundingAmountApplied:     tx.RoundingAmountApplied,
		FinalTotal:                tx.FinalTotal,
		AmountSaved:               tx.AmountSaved,
		TotalItemsPurchased:       tx.TotalItemsPurchased,
		CreatedAt:                 tx.CreatedAt.Format(time.RFC3339),
	}
}
