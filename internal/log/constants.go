package log

const (
	KeyAppName         = "app"
	KeyRequestID       = "requestId"
	KeyProcess         = "process"
	KeyTag             = "tag"
	KeyConfig          = "config"
	KeyRequest         = "request"
	KeyRequestBody     = "requestBody"
	KeyRequestHeader   = "requestHeader"
	KeyRequestHost     = "host"
	KeyRequestIp       = "requesterIP"
	KeyRequestMethod   = "requestMethod"
	KeyRequestURI      = "requestURI"
	KeyRequestURL      = "requestURL"
	KeyTraceID         = "traceId"
	KeySpanID          = "spanId"
	KeyDbURL           = "dbUrl"
	KeyCacheKey        = "cacheKey"
	KeyChannel         = "channel"
	KeyTenantID        = "tenantId"
	KeyTerminalID      = "terminalId"
	KeyCartID          = "cartId"
	KeyCart            = "cart"
	KeyCartTotals      = "cartTotals"
	KeyCartLinesCount  = "cartLinesCount"
	KeyProductID       = "productId"
	KeyProductIDs      = "productIds"
	KeyProduct         = "product"
	KeyProducts        = "products"
	KeyProductQuantity = "productQuantity"
	KeyProductStock    = "productStock"
	KeyBarcode         = "barcode"
	KeySaleID          = "saleId"
	KeySale            = "sale"
	KeySales           = "sales"
	KeySaleItems       = "saleItems"
	KeyPaymentMethod   = "paymentMethod"
	KeyAuthorizationID = "authorizationId"
	KeyAttempt         = "attempt"
	KeyStockLookup     = "stockLookup"
	KeyEvent           = "event"
	KeyRoutingKey      = "routingKey"
	KeyCountryCode     = "countryCode"
)
