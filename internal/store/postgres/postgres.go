package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"megamart/backend/internal/domain"
	"megamart/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func encodeJSON(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (s *Store) CreateItem(ctx context.Context, entry domain.CatalogEntry) (*domain.CatalogEntry, error) {
	if entry.Item.ID == "" || entry.Item.Name == "" || entry.Item.OriginalPrice.IsNegative() || entry.StockLevel < 0 {
		return nil, store.ErrInvalidArgument
	}
	if entry.PurchaseLimit != nil && *entry.PurchaseLimit < 1 {
		return nil, store.ErrInvalidArgument
	}

	categories, err := encodeJSON(entry.Item.Categories)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, original_price, categories, stock_level, purchase_limit, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
	`, entry.Item.ID, entry.Item.Name, entry.Item.OriginalPrice, categories, entry.StockLevel, entry.PurchaseLimit)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := entry
	return &created, nil
}

func scanCatalogEntry(scanner interface{ Scan(dest ...any) error }) (domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	var categories []byte
	var limit sql.NullInt64

	err := scanner.Scan(&entry.Item.ID, &entry.Item.Name, &entry.Item.OriginalPrice, &categories, &entry.StockLevel, &limit)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &entry.Item.Categories); err != nil {
			return domain.CatalogEntry{}, err
		}
	}
	if limit.Valid {
		value := int(limit.Int64)
		entry.PurchaseLimit = &value
	}
	return entry, nil
}

func (s *Store) GetCatalogEntry(ctx context.Context, itemID string) (*domain.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, original_price, categories, stock_level, purchase_limit
		FROM items
		WHERE id = $1
	`, itemID)

	entry, err := scanCatalogEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Store) ListCatalog(ctx context.Context) (domain.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, original_price, categories, stock_level, purchase_limit
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	catalog := make(domain.Catalog, 128)
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		catalog[entry.Item.ID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return catalog, nil
}

func (s *Store) SetStockLevel(ctx context.Context, itemID string, level int) error {
	if level < 0 {
		return store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET stock_level = $2, updated_at = now()
		WHERE id = $1
	`, itemID, level)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ConsumeStock(ctx context.Context, quantities map[string]int) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback() }()

	for itemID, qty := range quantities {
		if qty < 1 {
			return store.ErrInvalidArgument
		}

		res, err := dbTx.ExecContext(ctx, `
			UPDATE items
			SET stock_level = stock_level - $2, updated_at = now()
			WHERE id = $1 AND stock_level >= $2
		`, itemID, qty)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return store.ErrNotFound
			}
			return store.ErrInsufficientStock
		}
	}

	return dbTx.Commit()
}

func (s *Store) SetPurchaseLimit(ctx context.Context, itemID string, limit *int) error {
	if limit != nil && *limit < 1 {
		return store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET purchase_limit = $2, updated_at = now()
		WHERE id = $1
	`, itemID, limit)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertDiscount(ctx context.Context, discount domain.Discount) error {
	if discount.ItemID == "" {
		return store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO discounts (item_id, discount_type, discount_value, created_at, updated_at)
		SELECT $1, $2, $3, now(), now()
		WHERE EXISTS (SELECT 1 FROM items WHERE id = $1)
		ON CONFLICT (item_id)
		DO UPDATE SET discount_type = $2, discount_value = $3, updated_at = now()
	`, discount.ItemID, discount.Type, discount.Value)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDiscount(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM discounts WHERE item_id = $1`, itemID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListDiscounts(ctx context.Context) (domain.DiscountTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, discount_type, discount_value
		FROM discounts
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make(domain.DiscountTable, 64)
	for rows.Next() {
		var discount domain.Discount
		if err := rows.Scan(&discount.ItemID, &discount.Type, &discount.Value); err != nil {
			return nil, err
		}
		table[discount.ItemID] = discount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidArgument
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, date_of_birth, id_verified, delivery_distance_km, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, customer.ID, customer.Name, nullString(customer.DateOfBirth), customer.IDVerified, customer.DeliveryDistanceKM)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func scanCustomer(scanner interface{ Scan(dest ...any) error }) (domain.Customer, error) {
	var customer domain.Customer
	var dob sql.NullString
	var distance decimal.NullDecimal

	err := scanner.Scan(&customer.ID, &customer.Name, &dob, &customer.IDVerified, &distance)
	if err != nil {
		return domain.Customer{}, err
	}
	if dob.Valid {
		customer.DateOfBirth = dob.String
	}
	if distance.Valid {
		value := distance.Decimal
		customer.DeliveryDistanceKM = &value
	}
	return customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, date_of_birth, id_verified, delivery_distance_km
		FROM customers
		WHERE id = $1
	`, customerID)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) SetCustomerVerified(ctx context.Context, customerID string, verified bool) (*domain.Customer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET id_verified = $2, updated_at = now()
		WHERE id = $1
	`, customerID, verified)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetCustomer(ctx, customerID)
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == "" {
		return nil, store.ErrInvalidArgument
	}

	lines, err := encodeJSON(tx.Lines)
	if err != nil {
		return nil, err
	}

	customerID := ""
	if tx.Customer != nil {
		customerID = tx.Customer.ID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, transaction_date, transaction_time, customer_id, payment_method, fulfilment_type,
			lines, all_items_subtotal, fulfilment_surcharge_amount, rounding_amount_applied,
			final_total, amount_saved, total_items_purchased, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, tx.ID, tx.Date, tx.Time, nullString(customerID), tx.PaymentMethod, tx.FulfilmentType,
		lines, tx.AllItemsSubtotal, tx.FulfilmentSurchargeAmount, tx.RoundingAmountApplied,
		tx.FinalTotal, tx.AmountSaved, tx.TotalItemsPurchased, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var customerID sql.NullString
	var lines []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_date, transaction_time, customer_id, payment_method, fulfilment_type,
			lines, all_items_subtotal, fulfilment_surcharge_amount, rounding_amount_applied,
			final_total, amount_saved, total_items_purchased, created_at
		FROM transactions
		WHERE id = $1
	`, transactionID).Scan(&tx.ID, &tx.Date, &tx.Time, &customerID, &tx.PaymentMethod, &tx.FulfilmentType,
		&lines, &tx.AllItemsSubtotal, &tx.FulfilmentSurchargeAmount, &tx.RoundingAmountApplied,
		&tx.FinalTotal, &tx.AmountSaved, &tx.TotalItemsPurchased, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &tx.Lines); err != nil {
			return nil, err
		}
	}
	if customerID.Valid {
		customer, err := s.GetCustomer(ctx, customerID.String)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		tx.Customer = customer
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	return &tx, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
