package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, tenant_id, barcode, name, brand, price, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.Barcode,
		&i.Name,
		&i.Brand,
		&i.Price,
		&i.Stock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanProducts(rows pgx.Rows, err error) ([]Product, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findProductById = `SELECT ` + productColumns + `
FROM products
WHERE tenant_id = $1 AND id = $2`

type FindProductByIdParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
}

func (q *Queries) FindProductById(c context.Context, arg FindProductByIdParams) (Product, error) {
	return scanProduct(q.db.QueryRow(c, findProductById, arg.TenantID, arg.ID))
}

const findProductsByIds = `SELECT ` + productColumns + `
FROM products
WHERE tenant_id = $1 AND id = ANY($2::uuid[])
ORDER BY id`

type FindProductsByIdsParams struct {
	TenantID uuid.UUID
	Ids      []uuid.UUID
}

func (q *Queries) FindProductsByIds(c context.Context, arg FindProductsByIdsParams) ([]Product, error) {
	return scanProducts(q.db.Query(c, findProductsByIds, arg.TenantID, arg.Ids))
}

const findProducts = `SELECT ` + productColumns + `
FROM products
WHERE tenant_id = $1
  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%')
ORDER BY name
LIMIT $3 OFFSET $4`

type FindProductsParams struct {
	TenantID uuid.UUID
	Name     string
	Limit    int32
	Offset   int32
}

func (q *Queries) FindProducts(c context.Context, arg FindProductsParams) ([]Product, error) {
	return scanProducts(q.db.Query(c, findProducts, arg.TenantID, arg.Name, arg.Limit, arg.Offset))
}

const findProductByBarcode = `SELECT ` + productColumns + `
FROM products
WHERE tenant_id = $1 AND barcode = $2`

type FindProductByBarcodeParams struct {
	TenantID uuid.UUID
	Barcode  string
}

func (q *Queries) FindProductByBarcode(c context.Context, arg FindProductByBarcodeParams) (Product, error) {
	return scanProduct(q.db.QueryRow(c, findProductByBarcode, arg.TenantID, arg.Barcode))
}

const insertProduct = `INSERT INTO products (tenant_id, barcode, name, brand, price, stock)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns

type InsertProductParams struct {
	TenantID uuid.UUID
	Barcode  pgtype.Text
	Name     string
	Brand    string
	Price    pgtype.Numeric
	Stock    int32
}

func (q *Queries) InsertProduct(c context.Context, arg InsertProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(
		c,
		insertProduct,
		arg.TenantID,
		arg.Barcode,
		arg.Name,
		arg.Brand,
		arg.Price,
		arg.Stock,
	))
}

const updateProductStock = `UPDATE products
SET stock = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2
RETURNING ` + productColumns

type UpdateProductStockParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	Stock    int32
}

func (q *Queries) UpdateProductStock(c context.Context, arg UpdateProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(c, updateProductStock, arg.TenantID, arg.ID, arg.Stock))
}

// Rows are locked in id order so concurrent checkouts touching the same products
// acquire their locks in the same sequence.
const lockProductsForUpdate = `SELECT id, stock
FROM products
WHERE tenant_id = $1 AND id = ANY($2::uuid[])
ORDER BY id
FOR UPDATE`

type LockProductsForUpdateParams struct {
	TenantID uuid.UUID
	Ids      []uuid.UUID
}

type LockProductsForUpdateRow struct {
	ID    uuid.UUID
	Stock int32
}

func (q *Queries) LockProductsForUpdate(
	c context.Context,
	arg LockProductsForUpdateParams,
) ([]LockProductsForUpdateRow, error) {
	rows, err := q.db.Query(c, lockProductsForUpdate, arg.TenantID, arg.Ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LockProductsForUpdateRow{}
	for rows.Next() {
		var i LockProductsForUpdateRow
		if err := rows.Scan(&i.ID, &i.Stock); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementProductStock returns pgx.ErrNoRows when the row holds less than quantity.
const decrementProductStock = `UPDATE products
SET stock = stock - $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2 AND stock >= $3
RETURNING stock`

type DecrementProductStockParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
	Quantity int32
}

func (q *Queries) DecrementProductStock(c context.Context, arg DecrementProductStockParams) (int32, error) {
	var stock int32
	err := q.db.QueryRow(c, decrementProductStock, arg.TenantID, arg.ID, arg.Quantity).Scan(&stock)
	return stock, err
}
