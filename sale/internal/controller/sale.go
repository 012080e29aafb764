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
	"github.com/Alturino/pos/sale/internal/otel"
	"github.com/Alturino/pos/sale/internal/service"
	"github.com/Alturino/pos/sale/pkg/request"
)

type SaleController struct {
	service  *service.SaleService
	validate *validator.Validate
}

func AttachSaleController(router *mux.Router, service *service.SaleService, validate *validator.Validate) {
	controller := SaleController{service: service, validate: validate}

	sales := router.PathPrefix("/sales").Subrouter()
	sales.HandleFunc("", controller.FindSales).Methods(http.MethodGet)
	sales.HandleFunc("/{saleId}", controller.FindSaleById).Methods(http.MethodGet)
}

func (ctrl SaleController) FindSales(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "SaleController FindSales")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleController FindSales").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	param := request.FindSales{TerminalID: r.URL.Query().Get("terminal")}
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

	logger = logger.With().Str(log.KeyProcess, "finding sales").Logger()
	logger.Trace().Msg("finding sales")
	c = logger.WithContext(c)
	sales, err := ctrl.service.FindSales(c, claims.TenantID, param)
	if err != nil {
		err = fmt.Errorf("failed finding sales with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusInternalServerError, err)
		return
	}
	logger.Info().Msg("found sales")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "sales found",
		"data": map[string]interface{}{
			"sales": sales,
			"total": service.Total(sales),
		},
	})
}

func (ctrl SaleController) FindSaleById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "SaleController FindSaleById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleController FindSaleById").
		Logger()

	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return
	}

	id, err := inHttp.PathUUID(r, "saleId")
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Str(log.KeySaleID, id.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding sale").Logger()
	logger.Trace().Msg("finding sale")
	c = logger.WithContext(c)
	sale, err := ctrl.service.FindSaleById(c, claims.TenantID, id)
	if err != nil {
		err = fmt.Errorf("failed finding sale with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		statusCode := http.StatusInternalServerError
		if errors.Is(err, inErrors.ErrSaleNotFound) {
			statusCode = http.StatusNotFound
		}
		inHttp.WriteFailed(c, w, statusCode, err)
		return
	}
	logger.Info().Msg("found sale")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("sale id=%s found", id),
		"data":       map[string]interface{}{"sale": sale},
	})
}
