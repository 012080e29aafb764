package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/cart/internal/metric"
	"github.com/Alturino/pos/cart/internal/otel"
	"github.com/Alturino/pos/cart/internal/payment"
	"github.com/Alturino/pos/cart/internal/session"
	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/cart/pkg/request"
	"github.com/Alturino/pos/cart/pkg/response"
	"github.com/Alturino/pos/cart/pkg/tax"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/retry"
	saleRequest "github.com/Alturino/pos/sale/pkg/request"
	saleResponse "github.com/Alturino/pos/sale/pkg/response"
)

type ProductCatalog interface {
	GetSnapshot(c context.Context, tenantID uuid.UUID, productID uuid.UUID) (engine.Snapshot, error)
	CurrentStock(c context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type SaleRecorder interface {
	RecordSale(c context.Context, param saleRequest.RecordSale) (saleResponse.Sale, error)
}

type CartService struct {
	sessions       *session.Store
	catalog        ProductCatalog
	recorder       SaleRecorder
	terminal       payment.Terminal
	metrics        *metric.Metrics
	taxes          tax.Table
	defaultCountry string
	retryOpts      []retry.Option
}

func NewCartService(
	sessions *session.Store,
	catalog ProductCatalog,
	recorder SaleRecorder,
	terminal payment.Terminal,
	metrics *metric.Metrics,
	taxes tax.Table,
	defaultCountry string,
	retryOpts ...retry.Option,
) *CartService {
	return &CartService{
		sessions:       sessions,
		catalog:        catalog,
		recorder:       recorder,
		terminal:       terminal,
		metrics:        metrics,
		taxes:          taxes,
		defaultCountry: defaultCountry,
		retryOpts:      retryOpts,
	}
}

func (svc *CartService) view(s *session.Session, cart *engine.Cart) response.Cart {
	return response.Cart{
		CreatedAt:   s.CreatedAt,
		TerminalID:  s.TerminalID,
		CountryCode: s.CountryCode,
		State:       cart.State().String(),
		Lines:       response.Lines(cart.Lines()),
		Totals:      cart.ComputeTotals(svc.taxes.Lookup(s.CountryCode)),
		ID:          s.ID,
		TenantID:    s.TenantID,
	}
}

// mutate runs fn on the locked cart and returns the resulting view.
func (svc *CartService) mutate(
	tenantID uuid.UUID,
	cartID uuid.UUID,
	fn func(cart *engine.Cart) error,
) (response.Cart, error) {
	s, err := svc.sessions.Get(tenantID, cartID)
	if err != nil {
		return response.Cart{}, err
	}
	res := response.Cart{}
	err = s.Do(func(cart *engine.Cart) error {
		if err := fn(cart); err != nil {
			return err
		}
		res = svc.view(s, cart)
		return nil
	})
	return res, err
}

func (svc *CartService) CreateCart(
	c context.Context,
	tenantID uuid.UUID,
	terminalID string,
	param request.CreateCart,
) response.Cart {
	_, span := otel.Tracer.Start(c, "CartService CreateCart")
	defer span.End()

	country := param.CountryCode
	if country == "" {
		country = svc.defaultCountry
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService CreateCart").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyTerminalID, terminalID).
		Str(log.KeyCountryCode, country).
		Str(log.KeyProcess, "creating cart").
		Logger()

	logger.Trace().Msg("creating cart")
	s := svc.sessions.Create(tenantID, terminalID, country)
	res := response.Cart{}
	_ = s.Do(func(cart *engine.Cart) error {
		res = svc.view(s, cart)
		return nil
	})
	svc.metrics.Operation("create", nil)
	svc.metrics.ActiveCarts(svc.sessions.Len())
	logger.Info().Str(log.KeyCartID, s.ID.String()).Msg("created cart")
	return res
}

func (svc *CartService) FindCart(c context.Context, tenantID uuid.UUID, cartID uuid.UUID) (response.Cart, error) {
	_, span := otel.Tracer.Start(c, "CartService FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService FindCart").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "finding cart").
		Logger()

	logger.Trace().Msg("finding cart")
	res, err := svc.mutate(tenantID, cartID, func(*engine.Cart) error { return nil })
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("found cart")
	return res, nil
}

func (svc *CartService) DeleteCart(c context.Context, tenantID uuid.UUID, cartID uuid.UUID) error {
	_, span := otel.Tracer.Start(c, "CartService DeleteCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService DeleteCart").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "deleting cart").
		Logger()

	logger.Trace().Msg("deleting cart")
	err := svc.sessions.Delete(tenantID, cartID)
	svc.metrics.Operation("delete", err)
	if err != nil {
		err = fmt.Errorf("failed deleting cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	svc.metrics.ActiveCarts(svc.sessions.Len())
	logger.Info().Msg("deleted cart")
	return nil
}

// AddItem scans one unit of productID into the cart using the catalog's current
// price and stock.
func (svc *CartService) AddItem(
	c context.Context,
	tenantID uuid.UUID,
	cartID uuid.UUID,
	productID uuid.UUID,
) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()
	defer func() { svc.metrics.Operation("add_item", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, productID.String()).
		Logger()

	if _, err = svc.sessions.Get(tenantID, cartID); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding product snapshot").Logger()
	logger.Trace().Msg("finding product snapshot")
	c = logger.WithContext(c)
	snapshot, err := svc.catalog.GetSnapshot(c, tenantID, productID)
	if err != nil {
		err = fmt.Errorf("failed finding product snapshot with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Any("snapshot", snapshot).Msg("found product snapshot")

	logger = logger.With().Str(log.KeyProcess, "adding line").Logger()
	logger.Trace().Msg("adding line")
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		return cart.AddLine(productID, snapshot)
	})
	if err != nil {
		err = fmt.Errorf("failed adding line with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("added line")
	return res, nil
}

func (svc *CartService) SetQuantity(
	c context.Context,
	tenantID uuid.UUID,
	cartID uuid.UUID,
	productID uuid.UUID,
	quantity int,
) (res response.Cart, err error) {
	_, span := otel.Tracer.Start(c, "CartService SetQuantity")
	defer span.End()
	defer func() { svc.metrics.Operation("set_quantity", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService SetQuantity").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, productID.String()).
		Int(log.KeyProductQuantity, quantity).
		Str(log.KeyProcess, "setting quantity").
		Logger()

	logger.Trace().Msg("setting quantity")
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		return cart.SetQuantity(productID, quantity)
	})
	if err != nil {
		err = fmt.Errorf("failed setting quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("set quantity")
	return res, nil
}

func (svc *CartService) RemoveItem(
	c context.Context,
	tenantID uuid.UUID,
	cartID uuid.UUID,
	productID uuid.UUID,
) (res response.Cart, err error) {
	_, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()
	defer func() { svc.metrics.Operation("remove_item", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, productID.String()).
		Str(log.KeyProcess, "removing line").
		Logger()

	logger.Trace().Msg("removing line")
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		if cart.State() == engine.StateCompleted {
			return engine.ErrCartCompleted
		}
		cart.RemoveLine(productID)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed removing line with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed line")
	return res, nil
}

// RefreshItem replaces the price and stock held by a line with the catalog's
// current values.
func (svc *CartService) RefreshItem(
	c context.Context,
	tenantID uuid.UUID,
	cartID uuid.UUID,
	productID uuid.UUID,
) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService RefreshItem")
	defer span.End()
	defer func() { svc.metrics.Operation("refresh_item", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RefreshItem").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProductID, productID.String()).
		Logger()

	if _, err = svc.sessions.Get(tenantID, cartID); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding product snapshot").Logger()
	logger.Trace().Msg("finding product snapshot")
	c = logger.WithContext(c)
	snapshot, err := svc.catalog.GetSnapshot(c, tenantID, productID)
	if err != nil {
		err = fmt.Errorf("failed finding product snapshot with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("found product snapshot")

	logger = logger.With().Str(log.KeyProcess, "refreshing line").Logger()
	logger.Trace().Msg("refreshing line")
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		return cart.RefreshSnapshot(productID, snapshot)
	})
	if err != nil {
		err = fmt.Errorf("failed refreshing line with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("refreshed line")
	return res, nil
}

func (svc *CartService) Reset(c context.Context, tenantID uuid.UUID, cartID uuid.UUID) (res response.Cart, err error) {
	_, span := otel.Tracer.Start(c, "CartService Reset")
	defer span.End()
	defer func() { svc.metrics.Operation("reset", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Reset").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "resetting cart").
		Logger()

	logger.Trace().Msg("resetting cart")
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		return cart.Reset()
	})
	if err != nil {
		err = fmt.Errorf("failed resetting cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("reset cart")
	return res, nil
}

func (svc *CartService) Totals(c context.Context, tenantID uuid.UUID, cartID uuid.UUID) (engine.Totals, error) {
	res, err := svc.FindCart(c, tenantID, cartID)
	if err != nil {
		return engine.Totals{}, err
	}
	return res.Totals, nil
}

// stockLookup reads the current stock of every line from the catalog. Products the
// catalog does not know report 0.
func (svc *CartService) stockLookup(
	c context.Context,
	tenantID uuid.UUID,
	lines []engine.LineItem,
) (engine.StockLookup, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	stock, err := svc.catalog.CurrentStock(c, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed finding current stock with error=%w", err)
	}
	return func(productID uuid.UUID) int { return stock[productID] }, nil
}

// Validate runs the checkout stock barrier without charging or recording anything.
func (svc *CartService) Validate(c context.Context, tenantID uuid.UUID, cartID uuid.UUID) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService Validate")
	defer span.End()
	defer func() { svc.metrics.Operation("validate", err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Validate").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "validating cart").
		Logger()

	logger.Trace().Msg("validating cart")
	c = logger.WithContext(c)
	res, err = svc.mutate(tenantID, cartID, func(cart *engine.Cart) error {
		if cart.Len() == 0 {
			return engine.ErrEmptyCart
		}
		lookup, err := svc.stockLookup(c, tenantID, cart.Lines())
		if err != nil {
			return err
		}
		return cart.ValidateForCheckout(lookup)
	})
	if err != nil {
		err = fmt.Errorf("failed validating cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("validated cart")
	return res, nil
}

// Checkout settles the cart. Stock is re-read from the catalog, card payments are
// authorized on the terminal and the sale is recorded with retries. When recording
// fails the card authorization is voided and the cart stays open with its lines.
// A completed cart is dropped from the session store.
func (svc *CartService) Checkout(
	c context.Context,
	tenantID uuid.UUID,
	cartID uuid.UUID,
	param request.Checkout,
) (res response.Checkout, err error) {
	c, span := otel.Tracer.Start(c, "CartService Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Checkout").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyPaymentMethod, string(param.Method)).
		Logger()

	s, err := svc.sessions.Get(tenantID, cartID)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}
	policy := svc.taxes.Lookup(s.CountryCode)

	receipt := engine.Receipt{}
	authorizationID := ""
	err = s.Do(func(cart *engine.Cart) error {
		lookup := engine.StockLookup(func(uuid.UUID) int { return 0 })
		if cart.Len() > 0 {
			logger := logger.With().Str(log.KeyProcess, "finding current stock").Logger()
			logger.Trace().Msg("finding current stock")
			var err error
			if lookup, err = svc.stockLookup(logger.WithContext(c), tenantID, cart.Lines()); err != nil {
				return err
			}
			logger.Trace().Msg("found current stock")
		}

		var err error
		receipt, err = cart.Checkout(policy, param.Payment(), lookup, func(req engine.CheckoutRequest) (uuid.UUID, error) {
			id, authErr := svc.authorize(c, s, param, req)
			if authErr != nil {
				return uuid.Nil, authErr
			}
			sale, recordErr := svc.record(c, s, id, req)
			if recordErr != nil {
				svc.void(c, id)
				return uuid.Nil, recordErr
			}
			authorizationID = id
			return sale.ID, nil
		})
		return err
	})
	svc.metrics.Checkout(param.Method, s.CountryCode, receipt.Request.Totals.Payable(), err)
	if err != nil {
		err = fmt.Errorf("failed checking out cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Checkout{}, err
	}

	logger = logger.With().Str(log.KeySaleID, receipt.SaleID.String()).Logger()
	if err := svc.sessions.Delete(tenantID, cartID); err != nil {
		logger.Warn().Err(err).Msg("failed dropping completed cart")
	}
	svc.metrics.ActiveCarts(svc.sessions.Len())

	req := receipt.Request
	tendered := req.Payment.Tendered
	if req.Payment.Method == engine.PaymentCard {
		tendered = req.Totals.Payable()
	}
	logger.Info().Str(log.KeyCartTotals, req.Totals.Payable().String()).Msg("checked out cart")
	return response.Checkout{
		Method:          req.Payment.Method,
		AuthorizationID: authorizationID,
		Payable:         req.Totals.Payable(),
		Tendered:        tendered,
		Change:          req.Change,
		Lines:           response.Lines(req.Lines),
		Totals:          req.Totals,
		SaleID:          receipt.SaleID,
		CartID:          cartID,
	}, nil
}

func (svc *CartService) authorize(
	c context.Context,
	s *session.Session,
	param request.Checkout,
	req engine.CheckoutRequest,
) (string, error) {
	if req.Payment.Method != engine.PaymentCard {
		return "", nil
	}
	c, span := otel.Tracer.Start(c, "CartService authorize")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService authorize").
		Str(log.KeyProcess, "authorizing card payment").
		Logger()

	logger.Trace().Msg("authorizing card payment")
	authorization, err := svc.terminal.Authorize(logger.WithContext(c), payment.AuthorizationRequest{
		Amount:       req.Totals.Payable(),
		TerminalID:   s.TerminalID,
		ApprovalCode: param.ApprovalCode,
		TenantID:     s.TenantID,
	})
	if err != nil {
		err = fmt.Errorf("failed authorizing card payment with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Trace().Str(log.KeyAuthorizationID, authorization.ID).Msg("authorized card payment")
	return authorization.ID, nil
}

// record retries transient failures only. A stock shortage found by the recorder
// is final.
func (svc *CartService) record(
	c context.Context,
	s *session.Session,
	authorizationID string,
	req engine.CheckoutRequest,
) (saleResponse.Sale, error) {
	c, span := otel.Tracer.Start(c, "CartService record")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService record").
		Str(log.KeyProcess, "recording sale").
		Logger()

	attempt := 0
	param := saleRequest.RecordSale{
		TerminalID:      s.TerminalID,
		CountryCode:     s.CountryCode,
		AuthorizationID: authorizationID,
		Checkout:        req,
		TenantID:        s.TenantID,
	}
	sale, err := retry.Do(c, func(c context.Context) (saleResponse.Sale, error) {
		attempt++
		logger := logger.With().Int(log.KeyAttempt, attempt).Logger()
		logger.Trace().Msg("recording sale")
		sale, err := svc.recorder.RecordSale(logger.WithContext(c), param)
		if errors.Is(err, engine.ErrStockExceeded) || errors.Is(err, engine.ErrEmptyCart) {
			return saleResponse.Sale{}, retry.Permanent(err)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("failed recording sale")
		}
		return sale, err
	}, svc.retryOpts...)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Int(log.KeyAttempt, attempt).Msg(err.Error())
		return saleResponse.Sale{}, err
	}
	logger.Trace().Str(log.KeySaleID, sale.ID.String()).Msg("recorded sale")
	return sale, nil
}

func (svc *CartService) void(c context.Context, authorizationID string) {
	if authorizationID == "" {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService void").
		Str(log.KeyAuthorizationID, authorizationID).
		Logger()
	if err := svc.terminal.Void(logger.WithContext(c), authorizationID); err != nil {
		logger.Error().Err(err).Msg("failed voiding card authorization")
	}
}

// Sessions exposes the store so callers can run its sweeper.
func (svc *CartService) Sessions() *session.Store {
	return svc.sessions
}

// ObserveSessions reports the number of open carts.
func (svc *CartService) ObserveSessions(remaining int) {
	svc.metrics.ActiveCarts(remaining)
}
