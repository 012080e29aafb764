package request

import (
	"github.com/shopspring/decimal"
)

type InsertProduct struct {
	Barcode string          `validate:"omitempty,numeric,min=8,max=14" json:"barcode"`
	Name    string          `validate:"required,max=200"               json:"name"`
	Brand   string          `validate:"max=100"                        json:"brand"`
	Price   decimal.Decimal `validate:"price"                          json:"price"`
	Stock   int             `validate:"gte=0,lte=2147483647"           json:"stock"`
}

type UpdateStock struct {
	Stock *int `validate:"required,gte=0,lte=2147483647" json:"stock"`
}

type FindProducts struct {
	Name   string `validate:"max=200"        json:"name"`
	Limit  int32  `validate:"gte=0,lte=200"  json:"limit"`
	Offset int32  `validate:"gte=0"          json:"offset"`
}
