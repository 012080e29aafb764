package repository

import (
	productRes "github.com/Alturino/pos/product/pkg/response"
	saleRes "github.com/Alturino/pos/sale/pkg/response"
)

func (p Product) Response() productRes.Product {
	return productRes.Product{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Barcode:   p.Barcode.String,
		Name:      p.Name,
		Brand:     p.Brand,
		Price:     Decimal(p.Price),
		Stock:     int(p.Stock),
		CreatedAt: p.CreatedAt.Time,
		UpdatedAt: p.UpdatedAt.Time,
	}
}

func (i SaleItem) Response() saleRes.SaleItem {
	return saleRes.SaleItem{
		ID:        i.ID,
		SaleID:    i.SaleID,
		ProductID: i.ProductID,
		UnitPrice: Decimal(i.UnitPrice),
		Quantity:  int(i.Quantity),
		LineTotal: Decimal(i.LineTotal),
	}
}

func (s Sale) Response(items []SaleItem) saleRes.Sale {
	res := saleRes.Sale{
		ID:              s.ID,
		TenantID:        s.TenantID,
		TerminalID:      s.TerminalID,
		CountryCode:     s.CountryCode,
		PaymentMethod:   s.PaymentMethod,
		AuthorizationID: s.AuthorizationID,
		Subtotal:        Decimal(s.Subtotal),
		Vat:             Decimal(s.Vat),
		TotalWithVat:    Decimal(s.TotalWithVat),
		RoundedTotal:    Decimal(s.RoundedTotal),
		RoundingDelta:   Decimal(s.RoundingDelta),
		Tendered:        Decimal(s.Tendered),
		Change:          Decimal(s.ChangeAmount),
		CreatedAt:       s.CreatedAt.Time,
		Items:           make([]saleRes.SaleItem, 0, len(items)),
	}
	for _, i := range items {
		res.Items = append(res.Items, i.Response())
	}
	return res
}
