package checkout

import (
	"errors"
	"fmt"
)

// Generic precondition failures. These indicate a caller programming error
// (missing input, malformed date, out-of-range value) rather than a business
// rule firing, and are matched with errors.Is.
var (
	ErrMissingArgument     = errors.New("missing required argument")
	ErrDateFormat          = errors.New("date is not in dd/mm/yyyy format")
	ErrInvalidValue        = errors.New("value violates a domain constraint")
	ErrUnknownDiscountType = errors.New("unknown discount type")
)

// Business-rule failures carry item context so callers can report which line
// broke the checkout. They are matched with errors.As.

type RestrictedItemError struct {
	ItemID   string
	ItemName string
}

func (e *RestrictedItemError) Error() string {
	return fmt.Sprintf("restricted item %s (%s) may not be purchased by this customer", e.ItemName, e.ItemID)
}

type PurchaseLimitError struct {
	ItemID    string
	ItemName  string
	Limit     int
	Requested int
}

func (e *PurchaseLimitError) Error() string {
	return fmt.Sprintf("purchase limit exceeded for item %s (%s): limit %d, requested %d", e.ItemName, e.ItemID, e.Limit, e.Requested)
}

type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s (%s): requested %d", e.ItemName, e.ItemID, e.Requested)
}

type FulfilmentError struct {
	Reason string
}

func (e *FulfilmentError) Error() string {
	return fmt.Sprintf("delivery not possible: %s", e.Reason)
}

type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found in catalog", e.ItemID)
}

// IsBusinessRuleError reports whether err is one of the named business-rule
// failures, as opposed to a generic precondition failure.
func IsBusinessRuleError(err error) bool {
	var restricted *RestrictedItemError
	var limit *PurchaseLimitError
	var stock *InsufficientStockError
	var fulfilment *FulfilmentError
	var notFound *ItemNotFoundError
	return errors.As(err, &restricted) ||
		errors.As(err, &limit) ||
		errors.As(err, &stock) ||
		errors.As(err, &fulfilment) ||
		errors.As(err, &notFound)
}
