package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentQRIS PaymentMethod = "qris"
)

type FulfilmentType string

const (
	FulfilmentPickup   FulfilmentType = "pickup"
	FulfilmentDelivery FulfilmentType = "delivery"
)

// Item is the immutable catalog-side view of a sellable product. Prices are
// decimal money values with at most two decimal places.
type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Categories    []string        `json:"categories"`
}

// Customer is an account profile a transaction may optionally link to.
// DeliveryDistanceKM is a pointer so "not set" and "zero kilometres" stay
// distinguishable states.
type Customer struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	DateOfBirth        string           `json:"date_of_birth,omitempty"`
	IDVerified         bool             `json:"id_verified"`
	DeliveryDistanceKM *decimal.Decimal `json:"delivery_distance_km,omitempty"`
}

// CatalogEntry pairs an item with its current stock level and optional
// per-transaction purchase limit.
type CatalogEntry struct {
	Item          Item `json:"item"`
	StockLevel    int  `json:"stock_level"`
	PurchaseLimit *int `json:"purchase_limit,omitempty"`
}

// Catalog is a read-only snapshot keyed by item id, supplied per checkout.
type Catalog map[string]CatalogEntry

type Discount struct {
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	ItemID string          `json:"item_id"`
}

// DiscountTable maps item id to its single active discount.
type DiscountTable map[string]Discount

// CatalogSnapshot bundles the catalog and discount table read at the start of
// a checkout, so both come from the same point in time.
type CatalogSnapshot struct {
	Catalog   Catalog       `json:"catalog"`
	Discounts DiscountTable `json:"discounts"`
}

type TransactionLine struct {
	Item      Item            `json:"item"`
	Quantity  int             `json:"quantity"`
	FinalCost decimal.Decimal `json:"final_cost"`
}

// Transaction is created by the caller and mutated in place by the checkout
// engine. Date is dd/mm/yyyy, Time is HH:MM.
type Transaction struct {
	ID                        string            `json:"id"`
	Date                      string            `json:"date"`
	Time                      string            `json:"time"`
	Customer                  *Customer         `json:"customer,omitempty"`
	PaymentMethod             PaymentMethod     `json:"payment_method"`
	FulfilmentType            FulfilmentType    `json:"fulfilment_type"`
	Lines                     []TransactionLine `json:"lines"`
	AllItemsSubtotal          decimal.Decimal   `json:"all_items_subtotal"`
	FulfilmentSurchargeAmount decimal.Decimal   `json:"fulfilment_surcharge_amount"`
	RoundingAmountApplied     decimal.Decimal   `json:"rounding_amount_applied"`
	FinalTotal                decimal.Decimal   `json:"final_total"`
	AmountSaved               decimal.Decimal   `json:"amount_saved"`
	TotalItemsPurchased       int               `json:"total_items_purchased"`
	CreatedAt                 time.Time         `json:"created_at"`
}

type ItemCreateRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Categories    []string        `json:"categories"`
	InitialStock  int             `json:"initial_stock"`
	PurchaseLimit *int            `json:"purchase_limit,omitempty"`
}

type StockSetRequest struct {
	StockLevel int `json:"stock_level"`
}

type PurchaseLimitSetRequest struct {
	PurchaseLimit *int `json:"purchase_limit"`
}

type CustomerCreateRequest struct {
	Name               string           `json:"name"`
	DateOfBirth        string           `json:"date_of_birth,omitempty"`
	DeliveryDistanceKM *decimal.Decimal `json:"delivery_distance_km,omitempty"`
}

type DiscountUpsertRequest struct {
	ItemID string          `json:"item_id"`
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
}

type CheckoutLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type CheckoutRequest struct {
	CustomerID     string         `json:"customer_id,omitempty"`
	Date           string         `json:"date,omitempty"`
	Time           string         `json:"time,omitempty"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	FulfilmentType FulfilmentType `json:"fulfilment_type"`
	Lines          []CheckoutLine `json:"lines"`
}

type CheckoutResponseLine struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	FinalCost decimal.Decimal `json:"final_cost"`
}

type CheckoutResponse struct {
	TransactionID             string                 `json:"transaction_id"`
	Date                      string                 `json:"date"`
	Time                      string                 `json:"time"`
	CustomerID                string                 `json:"customer_id,omitempty"`
	PaymentMethod             PaymentMethod          `json:"payment_method"`
	FulfilmentType            FulfilmentType         `json:"fulfilment_type"`
	Lines                     []CheckoutResponseLine `json:"lines"`
	AllItemsSubtotal          decimal.Decimal        `json:"all_items_subtotal"`
	FulfilmentSurchargeAmount decimal.Decimal        `json:"fulfilment_surcharge_amount"`
	RoundingAmountApplied     decimal.Decimal        `json:"rounding_amount_applied"`
	FinalTotal                decimal.Decimal        `json:"final_total"`
	AmountSaved               decimal.Decimal        `json:"amount_saved"`
	TotalItemsPurchased       int                    `json:"total_items_purchased"`
	CreatedAt                 string                 `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
