package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const saleColumns = `id, tenant_id, terminal_id, country_code, payment_method, subtotal, vat,
total_with_vat, rounded_total, rounding_delta, tendered, change_amount, authorization_id, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.TerminalID,
		&i.CountryCode,
		&i.PaymentMethod,
		&i.Subtotal,
		&i.Vat,
		&i.TotalWithVat,
		&i.RoundedTotal,
		&i.RoundingDelta,
		&i.Tendered,
		&i.ChangeAmount,
		&i.AuthorizationID,
		&i.CreatedAt,
	)
	return i, err
}

const insertSale = `INSERT INTO sales (
    tenant_id, terminal_id, country_code, payment_method, subtotal, vat,
    total_with_vat, rounded_total, rounding_delta, tendered, change_amount, authorization_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + saleColumns

type InsertSaleParams struct {
	TenantID        uuid.UUID
	TerminalID      string
	CountryCode     string
	PaymentMethod   string
	Subtotal        pgtype.Numeric
	Vat             pgtype.Numeric
	TotalWithVat    pgtype.Numeric
	RoundedTotal    pgtype.Numeric
	RoundingDelta   pgtype.Numeric
	Tendered        pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	AuthorizationID string
}

func (q *Queries) InsertSale(c context.Context, arg InsertSaleParams) (Sale, error) {
	return scanSale(q.db.QueryRow(
		c,
		insertSale,
		arg.TenantID,
		arg.TerminalID,
		arg.CountryCode,
		arg.PaymentMethod,
		arg.Subtotal,
		arg.Vat,
		arg.TotalWithVat,
		arg.RoundedTotal,
		arg.RoundingDelta,
		arg.Tendered,
		arg.ChangeAmount,
		arg.AuthorizationID,
	))
}

const insertSaleItem = `INSERT INTO sale_items (sale_id, product_id, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, sale_id, product_id, unit_price, quantity, line_total`

type InsertSaleItemParams struct {
	SaleID    uuid.UUID
	ProductID uuid.UUID
	UnitPrice pgtype.Numeric
	Quantity  int32
	LineTotal pgtype.Numeric
}

func scanSaleItem(row pgx.Row) (SaleItem, error) {
	var i SaleItem
	err := row.Scan(&i.ID, &i.SaleID, &i.ProductID, &i.UnitPrice, &i.Quantity, &i.LineTotal)
	return i, err
}

func (q *Queries) InsertSaleItem(c context.Context, arg InsertSaleItemParams) (SaleItem, error) {
	return scanSaleItem(q.db.QueryRow(
		c,
		insertSaleItem,
		arg.SaleID,
		arg.ProductID,
		arg.UnitPrice,
		arg.Quantity,
		arg.LineTotal,
	))
}

const findSaleById = `SELECT ` + saleColumns + `
FROM sales
WHERE tenant_id = $1 AND id = $2`

type FindSaleByIdParams struct {
	TenantID uuid.UUID
	ID       uuid.UUID
}

func (q *Queries) FindSaleById(c context.Context, arg FindSaleByIdParams) (Sale, error) {
	return scanSale(q.db.QueryRow(c, findSaleById, arg.TenantID, arg.ID))
}

const findSaleItemsBySaleId = `SELECT id, sale_id, product_id, unit_price, quantity, line_total
FROM sale_items
WHERE sale_id = $1
ORDER BY id`

func (q *Queries) FindSaleItemsBySaleId(c context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	rows, err := q.db.Query(c, findSaleItemsBySaleId, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SaleItem{}
	for rows.Next() {
		i, err := scanSaleItem(rows)
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

const findSales = `SELECT ` + saleColumns + `
FROM sales
WHERE tenant_id = $1
  AND ($2::text = '' OR terminal_id = $2::text)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type FindSalesParams struct {
	TenantID   uuid.UUID
	TerminalID string
	Limit      int32
	Offset     int32
}

func (q *Queries) FindSales(c context.Context, arg FindSalesParams) ([]Sale, error) {
	rows, err := q.db.Query(c, findSales, arg.TenantID, arg.TerminalID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Sale{}
	for rows.Next() {
		i, err := scanSale(rows)
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
