// Package checkout implements the point-of-sale business rules: age
// restriction gating, purchase limits, stock sufficiency, discount pricing,
// fulfilment surcharges, cash rounding and the orchestration that folds them
// into a transaction's final totals.
package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"megamart/backend/internal/domain"
)

// DateLayout is the only accepted date format (dd/mm/yyyy, zero-padded).
const DateLayout = "02/01/2006"

const adultAge = 18

var restrictedCategories = map[string]bool{
	"alcohol": true,
	"tobacco": true,
	"knives":  true,
}

var (
	hundred              = decimal.NewFromInt(100)
	one                  = decimal.NewFromInt(1)
	minDeliverySurcharge = decimal.NewFromInt(5)
	perKilometreRate     = decimal.New(50, -2) // 0.50
)

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, value)
	}
	return parsed, nil
}

// IsRestrictedItem reports whether the item belongs to at least one
// age-restricted category. Category matching is case-insensitive.
func IsRestrictedItem(item *domain.Item) bool {
	if item == nil {
		return false
	}
	for _, category := range item.Categories {
		if restrictedCategories[strings.ToLower(category)] {
			return true
		}
	}
	return false
}

// IsPurchaseDisallowed decides whether the customer may NOT buy the item on
// the given purchase date. The returned boolean is "disallowed": callers
// negate it to decide eligibility.
//
// Unrestricted items are always allowed, regardless of customer presence or
// date validity. For restricted items: a missing purchase date, an unlinked
// customer, a missing birth date or an unverified ID all disallow the
// purchase; malformed dates are ErrDateFormat; otherwise the customer must
// have turned 18 on or before the purchase date.
func IsPurchaseDisallowed(item *domain.Item, customer *domain.Customer, purchaseDate string) (bool, error) {
	if item == nil {
		return false, fmt.Errorf("%w: item", ErrMissingArgument)
	}

	if !IsRestrictedItem(item) {
		return false, nil
	}

	if strings.TrimSpace(purchaseDate) == "" {
		return true, nil
	}
	purchasedAt, err := parseDate(purchaseDate)
	if err != nil {
		return false, err
	}

	if customer == nil || customer.DateOfBirth == "" || !customer.IDVerified {
		return true, nil
	}

	bornAt, err := parseDate(customer.DateOfBirth)
	if err != nil {
		return false, err
	}

	return ageAt(bornAt, purchasedAt) < adultAge, nil
}

// ageAt counts full elapsed years from birth to the reference date,
// decrementing when the birthday has not yet been reached that year.
func ageAt(born time.Time, at time.Time) int {
	age := at.Year() - born.Year()
	if at.Month() < born.Month() || (at.Month() == born.Month() && at.Day() < born.Day()) {
		age--
	}
	return age
}

// PurchaseLimit returns the per-transaction quantity cap for the item, or nil
// when the item has no limit or is not in the catalog.
func PurchaseLimit(item *domain.Item, catalog domain.Catalog) (*int, error) {
	if item == nil || catalog == nil {
		return nil, fmt.Errorf("%w: item and catalog", ErrMissingArgument)
	}

	entry, ok := catalog[item.ID]
	if !ok {
		return nil, nil
	}
	return entry.PurchaseLimit, nil
}

// IsSufficientlyStocked reports whether the requested quantity is covered by
// the catalog's stock level. An item missing from the catalog is reported as
// insufficient, not as an error.
func IsSufficientlyStocked(item *domain.Item, quantity int, catalog domain.Catalog) (bool, error) {
	if item == nil || catalog == nil {
		return false, fmt.Errorf("%w: item and catalog", ErrMissingArgument)
	}

	entry, ok := catalog[item.ID]
	if !ok {
		return false, nil
	}
	if entry.StockLevel < 0 {
		return false, fmt.Errorf("%w: stock level %d for item %s is negative", ErrInvalidValue, entry.StockLevel, item.ID)
	}
	if quantity < 1 {
		return false, fmt.Errorf("%w: purchase quantity must be at least 1, got %d", ErrInvalidValue, quantity)
	}

	return quantity <= entry.StockLevel, nil
}

// FinalItemPrice applies the item's discount, if any, and returns the unit
// price rounded to two decimal places.
func FinalItemPrice(item *domain.Item, discounts domain.DiscountTable) (decimal.Decimal, error) {
	if item == nil || discounts == nil {
		return decimal.Zero, fmt.Errorf("%w: item and discount table", ErrMissingArgument)
	}

	finalPrice := item.OriginalPrice

	discount, ok := discounts[item.ID]
	if ok {
		switch discount.Type {
		case domain.DiscountPercentage:
			if discount.Value.LessThan(one) || discount.Value.GreaterThan(hundred) {
				return decimal.Zero, fmt.Errorf("%w: percentage discount %s for item %s outside [1,100]", ErrInvalidValue, discount.Value, item.ID)
			}
			finalPrice = finalPrice.Mul(hundred.Sub(discount.Value)).Div(hundred)
		case domain.DiscountFlat:
			if discount.Value.IsNegative() || discount.Value.GreaterThan(finalPrice) {
				return decimal.Zero, fmt.Errorf("%w: flat discount %s for item %s would make the price negative or above original", ErrInvalidValue, discount.Value, item.ID)
			}
			finalPrice = finalPrice.Sub(discount.Value)
		default:
			return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownDiscountType, discount.Type)
		}
	}

	return finalPrice.Round(2), nil
}

// ItemSavings is the per-unit difference between original and final price.
// Both inputs are rounded to two decimal places first; a final price above
// the original is invalid.
func ItemSavings(originalPrice decimal.Decimal, finalPrice decimal.Decimal) (decimal.Decimal, error) {
	originalPrice = originalPrice.Round(2)
	finalPrice = finalPrice.Round(2)

	if finalPrice.GreaterThan(originalPrice) {
		return decimal.Zero, fmt.Errorf("%w: final price %s exceeds original price %s", ErrInvalidValue, finalPrice, originalPrice)
	}

	return originalPrice.Sub(finalPrice).Round(2), nil
}

// FulfilmentSurcharge computes the delivery fee: zero for pickup, otherwise
// the greater of the flat minimum and the per-kilometre rate. Delivery
// requires a linked customer with a known, non-zero delivery distance; the
// failure is a FulfilmentError rather than a missing-argument error because
// the fulfilment choice itself is valid.
func FulfilmentSurcharge(fulfilmentType domain.FulfilmentType, customer *domain.Customer) (decimal.Decimal, error) {
	switch fulfilmentType {
	case "":
		return decimal.Zero, fmt.Errorf("%w: fulfilment type", ErrMissingArgument)
	case domain.FulfilmentPickup:
		return decimal.Zero, nil
	case domain.FulfilmentDelivery:
		if customer == nil || customer.DeliveryDistanceKM == nil || customer.DeliveryDistanceKM.IsZero() {
			return decimal.Zero, &FulfilmentError{Reason: "customer or delivery distance information is missing"}
		}
		surcharge := customer.DeliveryDistanceKM.Mul(perKilometreRate)
		if surcharge.LessThan(minDeliverySurcharge) {
			surcharge = minDeliverySurcharge
		}
		return surcharge.Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: fulfilment type %q", ErrInvalidValue, fulfilmentType)
	}
}

// RoundForCash rounds a subtotal to two decimal places and, for cash
// payments only, to the nearest five-cent increment with ties rounding up.
func RoundForCash(subtotal decimal.Decimal, paymentMethod domain.PaymentMethod) (decimal.Decimal, error) {
	if paymentMethod == "" {
		return decimal.Zero, fmt.Errorf("%w: payment method", ErrMissingArgument)
	}

	subtotal = subtotal.Round(2)
	if paymentMethod != domain.PaymentCash {
		return subtotal, nil
	}

	cents := subtotal.Mul(hundred).IntPart()
	switch remainder := cents % 5; remainder {
	case 1, 2:
		cents -= remainder
	case 3, 4:
		cents += 5 - remainder
	}

	return decimal.New(cents, -2), nil
}
