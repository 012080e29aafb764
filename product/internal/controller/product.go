package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/auth"
	inErrors "github.com/Alturino/pos/internal/errors"
	inHttp "github.com/Alturino/pos/internal/http"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	productErrors "github.com/Alturino/pos/product/internal/errors"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/internal/service"
	"github.com/Alturino/pos/product/pkg/request"
)

type ProductController struct {
	service  *service.ProductService
	validate *validator.Validate
}

func AttachProductController(
	router *mux.Router,
	service *service.ProductService,
	validate *validator.Validate,
) {
	controller := ProductController{service: service, validate: validate}

	products := router.PathPrefix("/products").Subrouter()
	products.HandleFunc("", controller.FindProducts).Methods(http.MethodGet)
	products.HandleFunc("", controller.InsertProduct).Methods(http.MethodPost)
	products.HandleFunc("/barcode/{barcode}", controller.LookupBarcode).Methods(http.MethodGet)
	products.HandleFunc("/{productId}", controller.FindProductById).Methods(http.MethodGet)
	products.HandleFunc("/{productId}/stock", controller.UpdateStock).Methods(http.MethodPut)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrProductExists):
		return http.StatusConflict
	case errors.Is(err, productErrors.ErrNegativeStock),
		errors.Is(err, productErrors.ErrStockOutOfRange),
		errors.Is(err, inErrors.ErrInvalidPathParam):
		return http.StatusBadRequest
	case errors.Is(err, productErrors.ErrLookupUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (ctrl ProductController) InsertProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController InsertProduct").
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
	reqBody := request.InsertProduct{}
	if err = inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "inserting product").Logger()
	logger.Info().Msg("inserting product")
	c = logger.WithContext(c)
	product, err := ctrl.service.InsertProduct(c, claims.TenantID, reqBody)
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("inserted product")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "successfully inserted product",
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) FindProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProducts").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "parsing query").Logger()
	param := request.FindProducts{Name: r.URL.Query().Get("name")}
	if param.Limit, err = inHttp.QueryInt32(r, "limit", 0); err == nil {
		param.Offset, err = inHttp.QueryInt32(r, "offset", 0)
	}
	if err == nil {
		err = ctrl.validate.StructCtx(c, param)
	}
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding products").Logger()
	logger.Trace().Msg("finding products")
	c = logger.WithContext(c)
	products, err := ctrl.service.FindProducts(c, claims.TenantID, param)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("found products")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "products found",
		"data":       map[string]interface{}{"products": products},
	})
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController FindProductById").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	id, err := inHttp.PathUUID(r, "productId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Trace().Msg("finding product")
	c = logger.WithContext(c)
	product, err := ctrl.service.FindProductById(c, claims.TenantID, id)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("product id=%s found", id),
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) UpdateStock(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController UpdateStock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController UpdateStock").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	id, err := inHttp.PathUUID(r, "productId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeyProductID, id.String()).Logger()

	reqBody := request.UpdateStock{}
	if err = inHttp.DecodeAndValidate(r, ctrl.validate, &reqBody); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().
		Str(log.KeyProcess, "updating stock").
		Int(log.KeyProductStock, *reqBody.Stock).
		Logger()
	logger.Info().Msg("updating stock")
	c = logger.WithContext(c)
	product, err := ctrl.service.UpdateStock(c, claims.TenantID, id, *reqBody.Stock)
	if err != nil {
		err = fmt.Errorf("failed updating stock with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Msg("updated stock")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully updated stock",
		"data":       map[string]interface{}{"product": product},
	})
}

func (ctrl ProductController) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController LookupBarcode")
	defer span.End()

	barcode := mux.Vars(r)["barcode"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductController LookupBarcode").
		Str(log.KeyBarcode, barcode).
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}
	if err = ctrl.validate.VarCtx(c, barcode, "required,numeric,max=14"); err != nil {
		err = fmt.Errorf("%w barcode: %w", inErrors.ErrInvalidPathParam, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "looking up barcode").Logger()
	logger.Trace().Msg("looking up barcode")
	c = logger.WithContext(c)
	lookup, err := ctrl.service.LookupBarcode(c, claims.TenantID, barcode)
	if err != nil {
		err = fmt.Errorf("failed looking up barcode with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCode(err), err)
		return
	}
	logger.Info().Str("source", lookup.Source).Msg("looked up barcode")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("barcode=%s found in %s", barcode, lookup.Source),
		"data":       map[string]interface{}{"lookup": lookup},
	})
}
