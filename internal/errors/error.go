package errors

import "errors"

var (
	ErrEmptyAuth        = errors.New("missing authorization")
	ErrEmptySubject     = errors.New("missing subject")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrMissingClaims    = errors.New("missing terminal claims in context")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product already exists")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrInvalidPathParam = errors.New("invalid path parameter")
)
