package http

const (
	KeyHeaderContentType   = "Content-Type"
	KeyHeaderRequestID     = "X-Request-Id"
	KeyHeaderAuthorization = "Authorization"
	ValueHeaderJson        = "application/json"
)
