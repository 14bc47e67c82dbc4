package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/ventamart/orderstock/internal/domain/money"
	domorder "github.com/ventamart/orderstock/internal/domain/order"
	domproduct "github.com/ventamart/orderstock/internal/domain/product"
)

// Schema is the DDL this store expects. Totals are not persisted; they are
// always recomputed from the lines so they cannot drift.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id             CHAR(36)      NOT NULL,
	code           VARCHAR(50)   NOT NULL,
	name           VARCHAR(200)  NOT NULL,
	description    TEXT          NOT NULL,
	unit_price     DECIMAL(10,2) NOT NULL,
	currency       CHAR(3)       NOT NULL,
	stock_quantity INT           NOT NULL,
	min_stock      INT           NOT NULL DEFAULT 0,
	active         TINYINT(1)    NOT NULL DEFAULT 1,
	created_at     DATETIME(6)   NOT NULL,
	updated_at     DATETIME(6)   NOT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uq_products_code (code)
);

CREATE TABLE IF NOT EXISTS orders (
	id          CHAR(36)    NOT NULL,
	customer_id CHAR(36)    NOT NULL,
	state       VARCHAR(20) NOT NULL,
	active      TINYINT(1)  NOT NULL DEFAULT 1,
	created_at  DATETIME(6) NOT NULL,
	updated_at  DATETIME(6) NOT NULL,
	PRIMARY KEY (id),
	KEY idx_orders_customer (customer_id)
);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id   CHAR(36)      NOT NULL,
	line_no    INT           NOT NULL,
	product_id CHAR(36)      NOT NULL,
	quantity   INT           NOT NULL,
	unit_price DECIMAL(10,2) NOT NULL,
	currency   CHAR(3)       NOT NULL,
	PRIMARY KEY (order_id, line_no),
	KEY idx_order_lines_product (product_id),
	CONSTRAINT fk_order_lines_order FOREIGN KEY (order_id) REFERENCES orders (id)
);
`

// Store implements the order and product repositories on MySQL/InnoDB. The
// confirmation protocol relies on SELECT ... FOR UPDATE row locks scoped to
// a single transaction.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the schema, statement by statement.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, o *domorder.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("mysql: order id is required")
	}
	if o.Status == domorder.StatusConfirmed {
		return domorder.ErrInvalidState
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer tx.Rollback()

	var state string
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM orders WHERE id = ? FOR UPDATE`, o.ID,
	).Scan(&state)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, state, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.ID, o.CustomerID, string(o.Status), o.Active, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return mapErr(fmt.Errorf("mysql: insert order: %w", err))
		}
	case err != nil:
		return mapErr(fmt.Errorf("mysql: load order: %w", err))
	default:
		if domorder.Status(state) != domorder.StatusDraft {
			return domorder.ErrInvalidState
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET state = ?, active = ?, updated_at = ? WHERE id = ?`,
			string(o.Status), o.Active, o.UpdatedAt, o.ID,
		)
		if err != nil {
			return mapErr(fmt.Errorf("mysql: update order: %w", err))
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, o.ID); err != nil {
			return mapErr(fmt.Errorf("mysql: clear lines: %w", err))
		}
	}

	for i, line := range o.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, product_id, quantity, unit_price, currency)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.ID, i+1, line.ProductID, line.Quantity,
			line.UnitPrice.Amount().StringFixed(2), line.UnitPrice.Currency(),
		)
		if err != nil {
			return mapErr(fmt.Errorf("mysql: insert line: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("mysql: commit: %w", err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domorder.Order, error) {
	o, err := scanOrder(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ConfirmWithStock runs the protocol in one InnoDB transaction: lock the
// order row, lock every product row in ascending id order, re-validate
// against the locked values, decrement, transition, commit. Lock-wait
// timeouts from the engine surface as the retryable domain error.
func (s *Store) ConfirmWithStock(ctx context.Context, id string) (*domorder.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer tx.Rollback()

	o, err := scanOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !o.IsDraft() {
		return nil, domorder.ErrInvalidState
	}

	productIDs := o.ProductIDs()
	sort.Strings(productIDs)
	quantities := o.QuantityByProduct()

	if len(productIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
		args := make([]any, len(productIDs))
		for i, pid := range productIDs {
			args[i] = pid
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, stock_quantity FROM products
			WHERE id IN (`+placeholders+`)
			ORDER BY id
			FOR UPDATE`, args...)
		if err != nil {
			return nil, mapErr(fmt.Errorf("mysql: lock products: %w", err))
		}

		stock := make(map[string]int, len(productIDs))
		for rows.Next() {
			var pid string
			var qty int
			if err := rows.Scan(&pid, &qty); err != nil {
				rows.Close()
				return nil, fmt.Errorf("mysql: scan product: %w", err)
			}
			stock[pid] = qty
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, mapErr(fmt.Errorf("mysql: lock products: %w", err))
		}
		rows.Close()

		for _, pid := range productIDs {
			available, ok := stock[pid]
			if !ok {
				return nil, fmt.Errorf("%w: %s", domproduct.ErrNotFound, pid)
			}
			if qty := quantities[pid]; available < qty {
				return nil, &domproduct.InsufficientStockError{
					ProductID: pid,
					Requested: qty,
					Available: available,
				}
			}
		}

		now := time.Now().UTC()
		for _, pid := range productIDs {
			_, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock_quantity = stock_quantity - ?, updated_at = ?
				WHERE id = ?`,
				quantities[pid], now, pid,
			)
			if err != nil {
				return nil, mapErr(fmt.Errorf("mysql: decrement stock: %w", err))
			}
		}
	}

	if err := o.Confirm(); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET state = ?, updated_at = ? WHERE id = ?`,
		string(o.Status), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: confirm order: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(fmt.Errorf("mysql: commit: %w", err))
	}
	return o, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanOrder(ctx context.Context, q queryer, id string, forUpdate bool) (*domorder.Order, error) {
	query := `SELECT id, customer_id, state, active, created_at, updated_at FROM orders WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var o domorder.Order
	var state string
	err := q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &state, &o.Active, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domorder.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: load order: %w", err))
	}
	o.Status = domorder.Status(state)

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price, currency
		FROM order_lines WHERE order_id = ? ORDER BY line_no`, id)
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: load lines: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid      string
			qty      int
			amount   string
			currency string
		)
		if err := rows.Scan(&pid, &qty, &amount, &currency); err != nil {
			return nil, fmt.Errorf("mysql: scan line: %w", err)
		}
		price, err := scanMoney(amount, currency)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, domorder.LineItem{ProductID: pid, Quantity: qty, UnitPrice: price})
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("mysql: load lines: %w", err))
	}
	return &o, nil
}

func scanMoney(amount, currency string) (money.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return money.Money{}, fmt.Errorf("mysql: parse amount: %w", err)
	}
	m, err := money.New(d, currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("mysql: money: %w", err)
	}
	return m, nil
}

// MySQL error numbers for lock wait timeout and deadlock; both are safe to
// retry because the transaction was rolled back as a unit.
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
)

func mapErr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %s", domorder.ErrLockWaitTimeout, myErr.Message)
		}
	}
	return err
}
