package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	domproduct "github.com/ventamart/orderstock/internal/domain/product"
)

// ProductRepository adapts the store to the product repository interface.
func (s *Store) ProductRepository() *ProductRepository {
	return &ProductRepository{db: s.db}
}

type ProductRepository struct {
	db *sql.DB
}

// Save inserts or, for a known id, rewrites the row. The two statements are
// kept separate so that inserting a fresh id under a taken code hits the
// code unique key and surfaces ErrCodeTaken instead of silently updating
// the other product's row.
func (r *ProductRepository) Save(ctx context.Context, p *domproduct.Product) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("mysql: product id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ? FOR UPDATE`, p.ID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products
				(id, code, name, description, unit_price, currency, stock_quantity, min_stock, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Code, p.Name, p.Description,
			p.UnitPrice.Amount().StringFixed(2), p.UnitPrice.Currency(),
			p.StockQuantity, p.MinStock, p.Active, p.CreatedAt, p.UpdatedAt,
		)
	case err != nil:
		return mapErr(fmt.Errorf("mysql: load product: %w", err))
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET code = ?, name = ?, description = ?, unit_price = ?, currency = ?,
				stock_quantity = ?, min_stock = ?, active = ?, updated_at = ?
			WHERE id = ?`,
			p.Code, p.Name, p.Description,
			p.UnitPrice.Amount().StringFixed(2), p.UnitPrice.Currency(),
			p.StockQuantity, p.MinStock, p.Active, p.UpdatedAt, p.ID,
		)
	}
	if err != nil {
		if isDuplicateCode(err) {
			return domproduct.ErrCodeTaken
		}
		return mapErr(fmt.Errorf("mysql: save product: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("mysql: commit: %w", err))
	}
	return nil
}

// Update applies mutate to the row while holding its exclusive lock. Stock
// adjustments must come through here: the FOR UPDATE read makes the write
// sit after any in-flight confirmation's decrement instead of overwriting
// it from a stale read.
func (r *ProductRepository) Update(ctx context.Context, id string, mutate func(*domproduct.Product) error) (*domproduct.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProductRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET code = ?, name = ?, description = ?, unit_price = ?, currency = ?,
			stock_quantity = ?, min_stock = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		p.Code, p.Name, p.Description,
		p.UnitPrice.Amount().StringFixed(2), p.UnitPrice.Currency(),
		p.StockQuantity, p.MinStock, p.Active, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if isDuplicateCode(err) {
			return nil, domproduct.ErrCodeTaken
		}
		return nil, mapErr(fmt.Errorf("mysql: update product: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(fmt.Errorf("mysql: commit: %w", err))
	}
	return p, nil
}

func scanProductRow(ctx context.Context, tx *sql.Tx, id string) (*domproduct.Product, error) {
	rows, err := tx.QueryContext(ctx, productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: lock product: %w", err))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, mapErr(fmt.Errorf("mysql: lock product: %w", err))
		}
		return nil, domproduct.ErrNotFound
	}
	return scanProduct(rows)
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domproduct.Product, error) {
	return r.scanOne(ctx, `WHERE id = ?`, id)
}

func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*domproduct.Product, error) {
	return r.scanOne(ctx, `WHERE code = ?`, code)
}

func (r *ProductRepository) List(ctx context.Context) ([]*domproduct.Product, error) {
	rows, err := r.db.QueryContext(ctx, productColumns+` FROM products ORDER BY code`)
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: list products: %w", err))
	}
	defer rows.Close()

	var out []*domproduct.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("mysql: list products: %w", err))
	}
	return out, nil
}

const productColumns = `SELECT id, code, name, description, unit_price, currency, stock_quantity, min_stock, active, created_at, updated_at`

func (r *ProductRepository) scanOne(ctx context.Context, where string, arg any) (*domproduct.Product, error) {
	rows, err := r.db.QueryContext(ctx, productColumns+` FROM products `+where, arg)
	if err != nil {
		return nil, mapErr(fmt.Errorf("mysql: query product: %w", err))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, mapErr(fmt.Errorf("mysql: query product: %w", err))
		}
		return nil, domproduct.ErrNotFound
	}
	return scanProduct(rows)
}

func scanProduct(rows *sql.Rows) (*domproduct.Product, error) {
	var (
		p        domproduct.Product
		amount   string
		currency string
	)
	err := rows.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &amount, &currency,
		&p.StockQuantity, &p.MinStock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: scan product: %w", err)
	}
	price, err := scanMoney(amount, currency)
	if err != nil {
		return nil, err
	}
	p.UnitPrice = price
	return &p, nil
}

func isDuplicateCode(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}
