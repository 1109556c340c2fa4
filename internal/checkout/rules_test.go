package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"megamart/backend/internal/domain"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return parsed
}

func mustEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !dec(t, want).Equal(got) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func wineItem(t *testing.T) *domain.Item {
	t.Helper()
	return &domain.Item{
		ID:            "ITM-WINE-01",
		Name:          "Shiraz 750ml",
		OriginalPrice: dec(t, "24.00"),
		Categories:    []string{"Alcohol", "beverage"},
	}
}

func breadItem(t *testing.T) *domain.Item {
	t.Helper()
	return &domain.Item{
		ID:            "ITM-BREAD-01",
		Name:          "Sourdough Loaf",
		OriginalPrice: dec(t, "4.50"),
		Categories:    []string{"bakery"},
	}
}

func verifiedAdult() *domain.Customer {
	return &domain.Customer{
		ID:          "CUST-01",
		Name:        "Dana",
		DateOfBirth: "01/08/1990",
		IDVerified:  true,
	}
}

func TestIsPurchaseDisallowedRequiresItem(t *testing.T) {
	_, err := IsPurchaseDisallowed(nil, verifiedAdult(), "15/06/2023")
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
}

func TestUnrestrictedItemIgnoresCustomerAndDates(t *testing.T) {
	disallowed, err := IsPurchaseDisallowed(breadItem(t), nil, "not-a-date")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disallowed {
		t.Fatalf("unrestricted item should always be allowed")
	}
}

func TestRestrictedItemWithoutCustomerIsDisallowed(t *testing.T) {
	disallowed, err := IsPurchaseDisallowed(wineItem(t), nil, "15/06/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !disallowed {
		t.Fatalf("expected restricted item without linked customer to be disallowed")
	}
}

func TestRestrictedItemWithUnverifiedCustomerIsDisallowed(t *testing.T) {
	customer := verifiedAdult()
	customer.IDVerified = false

	disallowed, err := IsPurchaseDisallowed(wineItem(t), customer, "15/06/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !disallowed {
		t.Fatalf("expected unverified customer to be disallowed regardless of age")
	}
}

func TestRestrictedItemWithoutBirthDateIsDisallowed(t *testing.T) {
	customer := verifiedAdult()
	customer.DateOfBirth = ""

	disallowed, err := IsPurchaseDisallowed(wineItem(t), customer, "15/06/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !disallowed {
		t.Fatalf("expected customer without birth date to be disallowed")
	}
}

func TestRestrictedItemWithoutPurchaseDateIsDisallowed(t *testing.T) {
	disallowed, err := IsPurchaseDisallowed(wineItem(t), verifiedAdult(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !disallowed {
		t.Fatalf("expected missing purchase date to disallow restricted item")
	}
}

func TestRestrictedItemRejectsBadDateFormats(t *testing.T) {
	for _, purchaseDate := range []string{"2023-06-15", "15-06-2023", "15/6/2023", "31/02/2023"} {
		_, err := IsPurchaseDisallowed(wineItem(t), verifiedAdult(), purchaseDate)
		if !errors.Is(err, ErrDateFormat) {
			t.Fatalf("expected ErrDateFormat for %q, got %v", purchaseDate, err)
		}
	}

	customer := verifiedAdult()
	customer.DateOfBirth = "1990-08-01"
	_, err := IsPurchaseDisallowed(wineItem(t), customer, "15/06/2023")
	if !errors.Is(err, ErrDateFormat) {
		t.Fatalf("expected ErrDateFormat for bad birth date, got %v", err)
	}
}

func TestAgeBoundaryAroundEighteenthBirthday(t *testing.T) {
	customer := verifiedAdult()
	customer.DateOfBirth = "01/08/2005"

	disallowed, err := IsPurchaseDisallowed(wineItem(t), customer, "31/07/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !disallowed {
		t.Fatalf("customer is 17 on 31/07/2023, expected disallowed")
	}

	disallowed, err = IsPurchaseDisallowed(wineItem(t), customer, "01/08/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if disallowed {
		t.Fatalf("customer turns 18 on 01/08/2023, expected allowed")
	}
}

func TestRestrictionMatchesCategoriesCaseInsensitively(t *testing.T) {
	item := wineItem(t)
	item.Categories = []string{"ALCOHOL"}
	if !IsRestrictedItem(item) {
		t.Fatalf("expected ALCOHOL to match restricted categories")
	}

	item.Categories = []string{"Tobacco"}
	if !IsRestrictedItem(item) {
		t.Fatalf("expected Tobacco to match restricted categories")
	}

	item.Categories = []string{"knive"}
	if IsRestrictedItem(item) {
		t.Fatalf("expected partial category name not to match")
	}
}

func TestPurchaseLimitLookup(t *testing.T) {
	limit := 2
	catalog := domain.Catalog{
		"ITM-WINE-01":  {Item: *wineItem(t), StockLevel: 10, PurchaseLimit: &limit},
		"ITM-BREAD-01": {Item: *breadItem(t), StockLevel: 10},
	}

	got, err := PurchaseLimit(wineItem(t), catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != 2 {
		t.Fatalf("expected limit 2, got %v", got)
	}

	got, err = PurchaseLimit(breadItem(t), catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no limit for unlimited item, got %d", *got)
	}

	got, err = PurchaseLimit(&domain.Item{ID: "ITM-GHOST"}, catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no limit for unknown item")
	}

	if _, err := PurchaseLimit(nil, catalog); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil item, got %v", err)
	}
	if _, err := PurchaseLimit(wineItem(t), nil); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil catalog, got %v", err)
	}
}

func TestStockSufficiency(t *testing.T) {
	catalog := domain.Catalog{
		"ITM-BREAD-01": {Item: *breadItem(t), StockLevel: 3},
	}

	stocked, err := IsSufficientlyStocked(breadItem(t), 3, catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stocked {
		t.Fatalf("expected quantity equal to stock to be sufficient")
	}

	stocked, err = IsSufficientlyStocked(breadItem(t), 4, catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stocked {
		t.Fatalf("expected quantity above stock to be insufficient")
	}

	stocked, err = IsSufficientlyStocked(&domain.Item{ID: "ITM-GHOST"}, 1, catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stocked {
		t.Fatalf("expected unknown item to be reported as insufficient")
	}

	if _, err := IsSufficientlyStocked(breadItem(t), 0, catalog); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for zero quantity, got %v", err)
	}

	negative := domain.Catalog{
		"ITM-BREAD-01": {Item: *breadItem(t), StockLevel: -1},
	}
	if _, err := IsSufficientlyStocked(breadItem(t), 1, negative); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for negative stock, got %v", err)
	}

	if _, err := IsSufficientlyStocked(nil, 1, catalog); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil item, got %v", err)
	}
}

func TestFinalItemPriceWithoutDiscount(t *testing.T) {
	price, err := FinalItemPrice(breadItem(t), domain.DiscountTable{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "4.50", price)
}

func TestFinalItemPricePercentageDiscount(t *testing.T) {
	item := breadItem(t)
	item.OriginalPrice = dec(t, "4.00")
	discounts := domain.DiscountTable{
		item.ID: {Type: domain.DiscountPercentage, Value: dec(t, "25"), ItemID: item.ID},
	}

	price, err := FinalItemPrice(item, discounts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "3.00", price)
}

func TestFinalItemPriceFlatDiscount(t *testing.T) {
	item := breadItem(t)
	item.OriginalPrice = dec(t, "16.00")
	discounts := domain.DiscountTable{
		item.ID: {Type: domain.DiscountFlat, Value: dec(t, "1.50"), ItemID: item.ID},
	}

	price, err := FinalItemPrice(item, discounts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "14.50", price)
}

func TestFinalItemPriceRejectsOutOfRangeDiscounts(t *testing.T) {
	item := breadItem(t)

	for _, value := range []string{"0", "101", "-5"} {
		discounts := domain.DiscountTable{
			item.ID: {Type: domain.DiscountPercentage, Value: dec(t, value), ItemID: item.ID},
		}
		if _, err := FinalItemPrice(item, discounts); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for percentage %s, got %v", value, err)
		}
	}

	discounts := domain.DiscountTable{
		item.ID: {Type: domain.DiscountFlat, Value: dec(t, "5.00"), ItemID: item.ID},
	}
	if _, err := FinalItemPrice(item, discounts); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for flat discount above original price, got %v", err)
	}

	discounts[item.ID] = domain.Discount{Type: domain.DiscountFlat, Value: dec(t, "-0.50"), ItemID: item.ID}
	if _, err := FinalItemPrice(item, discounts); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for negative flat discount, got %v", err)
	}
}

func TestFinalItemPriceRejectsUnknownDiscountType(t *testing.T) {
	item := breadItem(t)
	discounts := domain.DiscountTable{
		item.ID: {Type: "bogo", Value: dec(t, "1"), ItemID: item.ID},
	}
	if _, err := FinalItemPrice(item, discounts); !errors.Is(err, ErrUnknownDiscountType) {
		t.Fatalf("expected ErrUnknownDiscountType, got %v", err)
	}
}

func TestItemSavings(t *testing.T) {
	savings, err := ItemSavings(dec(t, "32.00"), dec(t, "16.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "16.00", savings)

	savings, err = ItemSavings(dec(t, "4.50"), dec(t, "3.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "1.50", savings)

	if _, err := ItemSavings(dec(t, "3.00"), dec(t, "4.50")); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue when final exceeds original, got %v", err)
	}
}

func TestFulfilmentSurchargePickupIsFree(t *testing.T) {
	surcharge, err := FulfilmentSurcharge(domain.FulfilmentPickup, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "0.00", surcharge)
}

func TestFulfilmentSurchargeDeliveryUsesFlatMinimum(t *testing.T) {
	distance := dec(t, "2")
	customer := verifiedAdult()
	customer.DeliveryDistanceKM = &distance

	surcharge, err := FulfilmentSurcharge(domain.FulfilmentDelivery, customer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "5.00", surcharge)
}

func TestFulfilmentSurchargeDeliveryScalesWithDistance(t *testing.T) {
	distance := dec(t, "23")
	customer := verifiedAdult()
	customer.DeliveryDistanceKM = &distance

	surcharge, err := FulfilmentSurcharge(domain.FulfilmentDelivery, customer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "11.50", surcharge)
}

func TestFulfilmentSurchargeDeliveryNeedsDistance(t *testing.T) {
	var fulfilmentErr *FulfilmentError

	if _, err := FulfilmentSurcharge(domain.FulfilmentDelivery, nil); !errors.As(err, &fulfilmentErr) {
		t.Fatalf("expected FulfilmentError for unlinked customer, got %v", err)
	}

	customer := verifiedAdult()
	if _, err := FulfilmentSurcharge(domain.FulfilmentDelivery, customer); !errors.As(err, &fulfilmentErr) {
		t.Fatalf("expected FulfilmentError for missing distance, got %v", err)
	}

	zero := decimal.Zero
	customer.DeliveryDistanceKM = &zero
	if _, err := FulfilmentSurcharge(domain.FulfilmentDelivery, customer); !errors.As(err, &fulfilmentErr) {
		t.Fatalf("expected FulfilmentError for zero distance, got %v", err)
	}
}

func TestFulfilmentSurchargeRejectsMissingOrUnknownType(t *testing.T) {
	if _, err := FulfilmentSurcharge("", nil); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for empty fulfilment type, got %v", err)
	}
	if _, err := FulfilmentSurcharge("teleport", nil); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for unknown fulfilment type, got %v", err)
	}
}

func TestRoundForCash(t *testing.T) {
	cases := []struct {
		subtotal string
		method   domain.PaymentMethod
		want     string
	}{
		{"4.51", domain.PaymentCash, "4.50"},
		{"4.52", domain.PaymentCash, "4.50"},
		{"4.53", domain.PaymentCash, "4.55"},
		{"4.54", domain.PaymentCash, "4.55"},
		{"4.55", domain.PaymentCash, "4.55"},
		{"4.58", domain.PaymentCash, "4.60"},
		{"4.60", domain.PaymentCash, "4.60"},
		{"4.51", domain.PaymentCard, "4.51"},
		{"4.58", domain.PaymentQRIS, "4.58"},
	}

	for _, tc := range cases {
		got, err := RoundForCash(dec(t, tc.subtotal), tc.method)
		if err != nil {
			t.Fatalf("RoundForCash(%s, %s): %v", tc.subtotal, tc.method, err)
		}
		if !dec(t, tc.want).Equal(got) {
			t.Fatalf("RoundForCash(%s, %s): expected %s, got %s", tc.subtotal, tc.method, tc.want, got)
		}
	}

	if _, err := RoundForCash(dec(t, "4.51"), ""); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for empty payment method, got %v", err)
	}
}

func TestLeafRulesAreIdempotent(t *testing.T) {
	item := breadItem(t)
	discounts := domain.DiscountTable{
		item.ID: {Type: domain.DiscountPercentage, Value: dec(t, "10"), ItemID: item.ID},
	}

	first, err := FinalItemPrice(item, discounts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := FinalItemPrice(item, discounts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("expected identical results for identical inputs, got %s then %s", first, second)
	}

	firstRound, err := RoundForCash(dec(t, "9.98"), domain.PaymentCash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondRound, err := RoundForCash(dec(t, "9.98"), domain.PaymentCash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !firstRound.Equal(secondRound) {
		t.Fatalf("expected identical rounding results, got %s then %s", firstRound, secondRound)
	}
}
