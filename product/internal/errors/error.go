package errors

import "errors"

var (
	ErrBarcodeNotFound   = errors.New("barcode not found")
	ErrNegativeStock     = errors.New("stock must not be negative")
	ErrStockOutOfRange   = errors.New("stock exceeds the storable maximum")
	ErrLookupUnavailable = errors.New("product lookup service unavailable")
)
