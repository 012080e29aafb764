package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/pos/cart/internal/otel"
	"github.com/Alturino/pos/cart/internal/payment"
	"github.com/Alturino/pos/cart/internal/service"
	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/cart/pkg/request"
	"github.com/Alturino/pos/cart/pkg/response"
	"github.com/Alturino/pos/internal/auth"
	inErrors "github.com/Alturino/pos/internal/errors"
	inHttp "github.com/Alturino/pos/internal/http"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
)

type CartController struct {
	service  *service.CartService
	validate *validator.Validate
}

func AttachCartController(
	router *mux.Router,
	service *service.CartService,
	validate *validator.Validate,
) {
	controller := CartController{service: service, validate: validate}

	carts := router.PathPrefix("/carts").Subrouter()
	carts.HandleFunc("", controller.CreateCart).Methods(http.MethodPost)
	carts.HandleFunc("/{cartId}", controller.FindCart).Methods(http.MethodGet)
	carts.HandleFunc("/{cartId}", controller.DeleteCart).Methods(http.MethodDelete)
	carts.HandleFunc("/{cartId}/items", controller.AddItem).Methods(http.MethodPost)
	carts.HandleFunc("/{cartId}/items/{productId}", controller.SetQuantity).Methods(http.MethodPut)
	carts.HandleFunc("/{cartId}/items/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	carts.HandleFunc("/{cartId}/items/{productId}/refresh", controller.RefreshItem).Methods(http.MethodPost)
	carts.HandleFunc("/{cartId}/reset", controller.Reset).Methods(http.MethodPost)
	carts.HandleFunc("/{cartId}/totals", controller.Totals).Methods(http.MethodGet)
	carts.HandleFunc("/{cartId}/validate", controller.Validate).Methods(http.MethodPost)
	carts.HandleFunc("/{cartId}/checkout", controller.Checkout).Methods(http.MethodPost)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrCartNotFound),
		errors.Is(err, inErrors.ErrProductNotFound),
		errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrStockExceeded),
		errors.Is(err, engine.ErrOutOfStock),
		errors.Is(err, engine.ErrCartCompleted),
		errors.Is(err, payment.ErrDuplicateApproval):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientTender):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrEmptyCart),
		errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrInvalidPaymentMethod),
		errors.Is(err, engine.ErrInvalidSnapshot),
		errors.Is(err, payment.ErrApprovalRequired),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, inErrors.ErrInvalidPathParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError adds the offending product or the missing amount to the failure body so
// the terminal can tell the cashier what to fix.
func writeError(c context.Context, w http.ResponseWriter, err error) {
	body := map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCode(err),
		"message":    err.Error(),
	}
	var exceeded *engine.StockExceededError
	var tender *engine.InsufficientTenderError
	switch {
	case errors.As(err, &exceeded):
		body["data"] = map[string]interface{}{
			"productId": exceeded.ProductID,
			"requested": exceeded.Requested,
			"available": exceeded.Available,
		}
	case errors.As(err, &tender):
		body["data"] = map[string]interface{}{
			"payable":  tender.Payable,
			"tendered": tender.Tendered,
			"missing":  tender.Missing(),
		}
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, body)
}

func writeCart(c context.Context, w http.ResponseWriter, statusCode int, message string, cart response.Cart) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": statusCode,
		"message":    message,
		"data":       map[string]interface{}{"cart": cart},
	})
}

// target resolves the caller's claims and the cart id of the request. It writes the
// failure response itself and reports whether the handler may continue.
func target(
	w http.ResponseWriter,
	r *http.Request,
	span trace.Span,
	logger zerolog.Logger,
) (auth.Claims, uuid.UUID, bool) {
	c := r.Context()
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return auth.Claims{}, uuid.Nil, false
	}
	cartID, err := inHttp.PathUUID(r, "cartId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return auth.Claims{}, uuid.Nil, false
	}
	return claims, cartID, true
}

func productID(
	w http.ResponseWriter,
	r *http.Request,
	span trace.Span,
	logger zerolog.Logger,
) (uuid.UUID, bool) {
	id, err := inHttp.PathUUID(r, "productId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(r.Context(), w, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func (ctrl CartController) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController CreateCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController CreateCart").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	reqBody := request.CreateCart{}
	if r.ContentLength != 0 {
		if err = inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
			return
		}
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "creating cart").Logger()
	c = logger.WithContext(c)
	cart := ctrl.service.CreateCart(c, claims.TenantID, claims.TerminalID, reqBody)
	logger.Info().Str(log.KeyCartID, cart.ID.String()).Msg("created cart")

	writeCart(c, w, http.StatusCreated, "successfully created cart", cart)
}

func (ctrl CartController) FindCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController FindCart").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProcess, "finding cart").Logger()
	c = logger.WithContext(c)
	cart, err := ctrl.service.FindCart(c, claims.TenantID, cartID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}

	writeCart(c, w, http.StatusOK, fmt.Sprintf("cart id=%s found", cartID), cart)
}

func (ctrl CartController) DeleteCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController DeleteCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController DeleteCart").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProcess, "deleting cart").Logger()
	c = logger.WithContext(c)
	if err := ctrl.service.DeleteCart(c, claims.TenantID, cartID); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("deleted cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("cart id=%s deleted", cartID),
	})
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController AddItem").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(log.KeyCartID, cartID.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	reqBody := request.AddItem{}
	if err := inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().
		Str(log.KeyProductID, reqBody.ProductID.String()).
		Str(log.KeyProcess, "adding item").
		Logger()
	logger.Trace().Msg("adding item")
	c = logger.WithContext(c)
	cart, err := ctrl.service.AddItem(c, claims.TenantID, cartID, reqBody.ProductID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("added item")

	writeCart(c, w, http.StatusOK, "successfully added item", cart)
}

func (ctrl CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SetQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController SetQuantity").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	id, ok := productID(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProductID, id.String()).Logger()

	reqBody := request.SetQuantity{}
	if err := inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
		err = fmt.Errorf("%w: %w", engine.ErrInvalidQuantity, err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}

	logger = logger.With().
		Int(log.KeyProductQuantity, *reqBody.Quantity).
		Str(log.KeyProcess, "setting quantity").
		Logger()
	logger.Trace().Msg("setting quantity")
	c = logger.WithContext(c)
	cart, err := ctrl.service.SetQuantity(c, claims.TenantID, cartID, id, *reqBody.Quantity)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("set quantity")

	writeCart(c, w, http.StatusOK, "successfully set quantity", cart)
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	id, ok := productID(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, id.String()).
		Str(log.KeyProcess, "removing item").
		Logger()
	c = logger.WithContext(c)
	cart, err := ctrl.service.RemoveItem(c, claims.TenantID, cartID, id)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("removed item")

	writeCart(c, w, http.StatusOK, "successfully removed item", cart)
}

func (ctrl CartController) RefreshItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RefreshItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RefreshItem").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	id, ok := productID(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, id.String()).
		Str(log.KeyProcess, "refreshing item").
		Logger()
	c = logger.WithContext(c)
	cart, err := ctrl.service.RefreshItem(c, claims.TenantID, cartID, id)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("refreshed item")

	writeCart(c, w, http.StatusOK, "successfully refreshed item", cart)
}

func (ctrl CartController) Reset(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Reset")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Reset").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProcess, "resetting cart").Logger()
	c = logger.WithContext(c)
	cart, err := ctrl.service.Reset(c, claims.TenantID, cartID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("reset cart")

	writeCart(c, w, http.StatusOK, "successfully reset cart", cart)
}

func (ctrl CartController) Totals(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Totals")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Totals").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProcess, "computing totals").Logger()
	c = logger.WithContext(c)
	totals, err := ctrl.service.Totals(c, claims.TenantID, cartID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "computed totals",
		"data":       map[string]interface{}{"totals": totals, "payable": totals.Payable()},
	})
}

func (ctrl CartController) Validate(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Validate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Validate").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}

	logger = logger.With().Str(log.KeyCartID, cartID.String()).Str(log.KeyProcess, "validating cart").Logger()
	c = logger.WithContext(c)
	cart, err := ctrl.service.Validate(c, claims.TenantID, cartID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Msg("validated cart")

	writeCart(c, w, http.StatusOK, "cart is ready for checkout", cart)
}

func (ctrl CartController) Checkout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Checkout").
		Logger()

	claims, cartID, ok := target(w, r.WithContext(c), span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(log.KeyCartID, cartID.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	reqBody := request.Checkout{}
	if err := inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().
		Str(log.KeyPaymentMethod, string(reqBody.Method)).
		Str(log.KeyProcess, "checking out cart").
		Logger()
	logger.Info().Msg("checking out cart")
	c = logger.WithContext(c)
	checkout, err := ctrl.service.Checkout(c, claims.TenantID, cartID, reqBody)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		writeError(c, w, err)
		return
	}
	logger.Info().Str(log.KeySaleID, checkout.SaleID.String()).Msg("checked out cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "successfully checked out cart",
		"data":       map[string]interface{}{"checkout": checkout},
	})
}
