package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"megamart/backend/internal/domain"
)

// Process runs the full checkout over the transaction's lines, in order:
// resolve the item against the catalog, check the age restriction, check the
// cumulative purchase limit, check stock, then price the line. Totals are
// accumulated across lines and written onto the transaction, which is
// returned.
//
// Quantity limits and stock checks use the running total per distinct item
// id across lines, so a sequence of individually-valid lines can still trip
// a limit on the line that crosses it.
//
// Process fails fast: the first violation aborts the checkout. Lines already
// processed will have their FinalCost mutated, so callers must discard the
// transaction object after an error.
func Process(tx *domain.Transaction, catalog domain.Catalog, discounts domain.DiscountTable) (*domain.Transaction, error) {
	if tx == nil || catalog == nil || discounts == nil {
		return nil, fmt.Errorf("%w: transaction, catalog and discount table", ErrMissingArgument)
	}

	subtotal := decimal.Zero
	totalSavings := decimal.Zero
	totalItems := 0
	purchased := make(map[string]int, len(tx.Lines))

	for i := range tx.Lines {
		line := &tx.Lines[i]

		entry, ok := catalog[line.Item.ID]
		if !ok {
			return nil, &ItemNotFoundError{ItemID: line.Item.ID}
		}
		// Resolve the line against the catalog copy of the item so persisted
		// lines carry the full name, price and categories.
		line.Item = entry.Item
		item := entry.Item

		disallowed, err := IsPurchaseDisallowed(&item, tx.Customer, tx.Date)
		if err != nil {
			return nil, err
		}
		if disallowed {
			return nil, &RestrictedItemError{ItemID: item.ID, ItemName: item.Name}
		}

		runningQty := purchased[item.ID] + line.Quantity
		limit, err := PurchaseLimit(&item, catalog)
		if err != nil {
			return nil, err
		}
		if limit != nil && runningQty > *limit {
			return nil, &PurchaseLimitError{ItemID: item.ID, ItemName: item.Name, Limit: *limit, Requested: runningQty}
		}
		purchased[item.ID] = runningQty

		stocked, err := IsSufficientlyStocked(&item, runningQty, catalog)
		if err != nil {
			return nil, err
		}
		if !stocked {
			return nil, &InsufficientStockError{ItemID: item.ID, ItemName: item.Name, Requested: runningQty}
		}

		finalPrice, err := FinalItemPrice(&item, discounts)
		if err != nil {
			return nil, err
		}
		savings, err := ItemSavings(item.OriginalPrice, finalPrice)
		if err != nil {
			return nil, err
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		line.FinalCost = finalPrice.Mul(qty)

		subtotal = subtotal.Add(line.FinalCost)
		totalSavings = totalSavings.Add(savings.Mul(qty))
		totalItems += line.Quantity
	}

	roundedSubtotal, err := RoundForCash(subtotal, tx.PaymentMethod)
	if err != nil {
		return nil, err
	}
	surcharge, err := FulfilmentSurcharge(tx.FulfilmentType, tx.Customer)
	if err != nil {
		return nil, err
	}

	tx.AllItemsSubtotal = subtotal
	tx.FulfilmentSurchargeAmount = surcharge
	tx.RoundingAmountApplied = roundedSubtotal.Sub(subtotal)
	tx.FinalTotal = roundedSubtotal.Add(surcharge)
	tx.AmountSaved = totalSavings
	tx.TotalItemsPurchased = totalItems

	return tx, nil
}
