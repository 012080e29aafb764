package constants

const (
	AppPos            = "pos"
	AppPosServer      = "pos-server"
	AppCartService    = "cart-service"
	AppProductService = "product-service"
	AppSaleService    = "sale-service"
	AppStockListener  = "stock-listener"
	AudienceTerminal  = "audience-terminal"
)

const (
	ChannelStockUpdated = "stock.updated"
)
