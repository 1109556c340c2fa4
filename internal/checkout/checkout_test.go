package checkout

import (
	"errors"
	"testing"

	"megamart/backend/internal/domain"
)

func testCatalog(t *testing.T) domain.Catalog {
	t.Helper()
	wineLimit := 2
	return domain.Catalog{
		"ITM-WINE-01":  {Item: *wineItem(t), StockLevel: 10, PurchaseLimit: &wineLimit},
		"ITM-BREAD-01": {Item: *breadItem(t), StockLevel: 5},
		"ITM-MILK-01": {
			Item: domain.Item{
				ID:            "ITM-MILK-01",
				Name:          "Milk 2L",
				OriginalPrice: dec(t, "3.10"),
				Categories:    []string{"dairy"},
			},
			StockLevel: 8,
		},
	}
}

func TestProcessRequiresAllInputs(t *testing.T) {
	tx := &domain.Transaction{}
	catalog := testCatalog(t)
	discounts := domain.DiscountTable{}

	if _, err := Process(nil, catalog, discounts); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil transaction, got %v", err)
	}
	if _, err := Process(tx, nil, discounts); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil catalog, got %v", err)
	}
	if _, err := Process(tx, catalog, nil); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for nil discount table, got %v", err)
	}
}

func TestProcessSingleLinePickupCash(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		Time:           "10:30",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 2},
		},
	}

	result, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	mustEqual(t, "9.00", result.AllItemsSubtotal)
	mustEqual(t, "0.00", result.FulfilmentSurchargeAmount)
	mustEqual(t, "0.00", result.RoundingAmountApplied)
	mustEqual(t, "9.00", result.FinalTotal)
	mustEqual(t, "0.00", result.AmountSaved)
	if result.TotalItemsPurchased != 2 {
		t.Fatalf("expected 2 items purchased, got %d", result.TotalItemsPurchased)
	}
	mustEqual(t, "9.00", result.Lines[0].FinalCost)
}

func TestProcessAppliesDiscountsAndAccumulatesSavings(t *testing.T) {
	discounts := domain.DiscountTable{
		"ITM-BREAD-01": {Type: domain.DiscountFlat, Value: dec(t, "0.50"), ItemID: "ITM-BREAD-01"},
		"ITM-MILK-01":  {Type: domain.DiscountPercentage, Value: dec(t, "10"), ItemID: "ITM-MILK-01"},
	}
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCard,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 2},
			{Item: domain.Item{ID: "ITM-MILK-01"}, Quantity: 1},
		},
	}

	result, err := Process(tx, testCatalog(t), discounts)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// bread: 4.50-0.50=4.00 x2 = 8.00; milk: 3.10*0.9=2.79 x1.
	mustEqual(t, "10.79", result.AllItemsSubtotal)
	// savings: 0.50 x2 + 0.31 x1.
	mustEqual(t, "1.31", result.AmountSaved)
	mustEqual(t, "10.79", result.FinalTotal)
	if result.TotalItemsPurchased != 3 {
		t.Fatalf("expected 3 items purchased, got %d", result.TotalItemsPurchased)
	}
	mustEqual(t, "8.00", result.Lines[0].FinalCost)
	mustEqual(t, "2.79", result.Lines[1].FinalCost)
}

func TestProcessCashRoundingIsAppliedToTotals(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-MILK-01"}, Quantity: 2},
		},
	}

	result, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// 6.20 is already a 5-cent multiple, so no rounding applies; use a
	// discount run below for the rounding case.
	mustEqual(t, "6.20", result.AllItemsSubtotal)
	mustEqual(t, "0.00", result.RoundingAmountApplied)

	discounts := domain.DiscountTable{
		"ITM-MILK-01": {Type: domain.DiscountPercentage, Value: dec(t, "1"), ItemID: "ITM-MILK-01"},
	}
	tx = &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-MILK-01"}, Quantity: 1},
		},
	}

	result, err = Process(tx, testCatalog(t), discounts)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// 3.10 - 1% = 3.07, rounded down to 3.05 for cash.
	mustEqual(t, "3.07", result.AllItemsSubtotal)
	mustEqual(t, "-0.02", result.RoundingAmountApplied)
	mustEqual(t, "3.05", result.FinalTotal)
}

func TestProcessAddsDeliverySurcharge(t *testing.T) {
	distance := dec(t, "30")
	customer := verifiedAdult()
	customer.DeliveryDistanceKM = &distance

	tx := &domain.Transaction{
		Date:           "15/06/2023",
		Customer:       customer,
		PaymentMethod:  domain.PaymentCard,
		FulfilmentType: domain.FulfilmentDelivery,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 1},
		},
	}

	result, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	mustEqual(t, "4.50", result.AllItemsSubtotal)
	mustEqual(t, "15.00", result.FulfilmentSurchargeAmount)
	mustEqual(t, "19.50", result.FinalTotal)
}

func TestProcessRejectsUnknownItem(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-GHOST"}, Quantity: 1},
		},
	}

	var notFound *ItemNotFoundError
	_, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ItemNotFoundError, got %v", err)
	}
	if notFound.ItemID != "ITM-GHOST" {
		t.Fatalf("expected error to carry item id, got %q", notFound.ItemID)
	}
}

func TestProcessRejectsRestrictedItemForUnlinkedCustomer(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-WINE-01"}, Quantity: 1},
		},
	}

	var restricted *RestrictedItemError
	_, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if !errors.As(err, &restricted) {
		t.Fatalf("expected RestrictedItemError, got %v", err)
	}
	if restricted.ItemID != "ITM-WINE-01" {
		t.Fatalf("expected error to carry item id, got %q", restricted.ItemID)
	}
}

func TestProcessRestrictionCheckedBeforeStock(t *testing.T) {
	// Wine quantity also exceeds stock; the restriction must fire first.
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-WINE-01"}, Quantity: 100},
		},
	}

	var restricted *RestrictedItemError
	if _, err := Process(tx, testCatalog(t), domain.DiscountTable{}); !errors.As(err, &restricted) {
		t.Fatalf("expected RestrictedItemError to win over stock failure, got %v", err)
	}
}

func TestProcessCumulativePurchaseLimitAcrossLines(t *testing.T) {
	// Each line is under the limit of 2 on its own; the second line crosses
	// the cumulative total.
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		Customer:       verifiedAdult(),
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-WINE-01"}, Quantity: 2},
			{Item: domain.Item{ID: "ITM-WINE-01"}, Quantity: 1},
		},
	}

	var limitErr *PurchaseLimitError
	_, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected PurchaseLimitError, got %v", err)
	}
	if limitErr.Limit != 2 || limitErr.Requested != 3 {
		t.Fatalf("expected limit 2 requested 3, got limit %d requested %d", limitErr.Limit, limitErr.Requested)
	}
}

func TestProcessCumulativeStockAcrossLines(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentPickup,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 3},
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 3},
		},
	}

	var stockErr *InsufficientStockError
	_, err := Process(tx, testCatalog(t), domain.DiscountTable{})
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 6 {
		t.Fatalf("expected running total 6 in error, got %d", stockErr.Requested)
	}
}

func TestProcessDeliveryWithoutDistanceFailsAfterLines(t *testing.T) {
	tx := &domain.Transaction{
		Date:           "15/06/2023",
		Customer:       verifiedAdult(),
		PaymentMethod:  domain.PaymentCash,
		FulfilmentType: domain.FulfilmentDelivery,
		Lines: []domain.TransactionLine{
			{Item: domain.Item{ID: "ITM-BREAD-01"}, Quantity: 1},
		},
	}

	var fulfilmentErr *FulfilmentError
	if _, err := Process(tx, testCatalog(t), domain.DiscountTable{}); !errors.As(err, &fulfilmentErr) {
		t.Fatalf("expected FulfilmentError, got %v", err)
	}
}

func TestBusinessRuleErrorClassification(t *testing.T) {
	if !IsBusinessRuleError(&RestrictedItemError{ItemID: "x"}) {
		t.Fatalf("expected RestrictedItemError to classify as business rule error")
	}
	if IsBusinessRuleError(ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument not to classify as business rule error")
	}
}
