package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/internal/constants"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/repository"
	"github.com/Alturino/pos/product/pkg/event"
	"github.com/Alturino/pos/sale/internal/otel"
	"github.com/Alturino/pos/sale/internal/publisher"
	"github.com/Alturino/pos/sale/pkg/request"
	"github.com/Alturino/pos/sale/pkg/response"
)

const defaultPageSize = 50

type DBPool interface {
	repository.DBTX
	BeginTx(c context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type SaleService struct {
	pool      DBPool
	queries   *repository.Queries
	cache     *redis.Client
	publisher publisher.Publisher
}

func NewSaleService(
	pool DBPool,
	queries *repository.Queries,
	cache *redis.Client,
	publisher publisher.Publisher,
) *SaleService {
	return &SaleService{pool: pool, queries: queries, cache: cache, publisher: publisher}
}

// RecordSale persists the sale and decrements stock in one transaction. Product
// rows are locked first, so a line whose stock was sold by another terminal since
// validation fails with *engine.StockExceededError and nothing is written.
func (svc *SaleService) RecordSale(c context.Context, param request.RecordSale) (res response.Sale, err error) {
	c, span := otel.Tracer.Start(c, "SaleService RecordSale")
	defer span.End()

	checkout := param.Checkout
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleService RecordSale").
		Str(log.KeyTenantID, param.TenantID.String()).
		Str(log.KeyTerminalID, param.TerminalID).
		Str(log.KeyPaymentMethod, string(checkout.Payment.Method)).
		Int(log.KeyCartLinesCount, len(checkout.Lines)).
		Logger()

	if len(checkout.Lines) == 0 {
		inOtel.RecordError(engine.ErrEmptyCart, span)
		return response.Sale{}, engine.ErrEmptyCart
	}

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Trace().Msg("initializing transaction")
	tx, err := svc.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	logger.Trace().Msg("initialized transaction")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "rolling back transaction").Logger()
		if rerr := tx.Rollback(c); rerr != nil {
			if errors.Is(rerr, pgx.ErrTxClosed) {
				return
			}
			rerr = fmt.Errorf("failed rolling back transaction with error=%w", rerr)
			inOtel.RecordError(rerr, span)
			logger.Error().Err(rerr).Msg(rerr.Error())
			return
		}
		logger.Info().Msg("rolled back transaction")
	}()
	queries := svc.queries.WithTx(tx)

	productIDs := make([]uuid.UUID, 0, len(checkout.Lines))
	for _, line := range checkout.Lines {
		productIDs = append(productIDs, line.ProductID)
	}

	logger = logger.With().
		Str(log.KeyProcess, "locking products").
		Any(log.KeyProductIDs, productIDs).
		Logger()
	logger.Trace().Msg("locking products")
	locked, err := queries.LockProductsForUpdate(c, repository.LockProductsForUpdateParams{
		TenantID: param.TenantID,
		Ids:      productIDs,
	})
	if err != nil {
		err = fmt.Errorf("failed locking products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	available := make(map[uuid.UUID]int, len(locked))
	for _, row := range locked {
		available[row.ID] = int(row.Stock)
	}
	for _, line := range checkout.Lines {
		if line.Quantity > available[line.ProductID] {
			err = &engine.StockExceededError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available[line.ProductID],
			}
			inOtel.RecordError(err, span)
			logger.Info().Err(err).Msg(err.Error())
			return response.Sale{}, err
		}
	}
	logger.Trace().Msg("locked products")

	logger = logger.With().Str(log.KeyProcess, "decrementing stock").Logger()
	logger.Trace().Msg("decrementing stock")
	for _, line := range checkout.Lines {
		_, err = queries.DecrementProductStock(c, repository.DecrementProductStockParams{
			TenantID: param.TenantID,
			ID:       line.ProductID,
			Quantity: int32(line.Quantity),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			err = &engine.StockExceededError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available[line.ProductID],
			}
		}
		if err != nil {
			err = fmt.Errorf("failed decrementing stock of productId=%s with error=%w", line.ProductID, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Sale{}, err
		}
	}
	logger.Trace().Msg("decremented stock")

	logger = logger.With().Str(log.KeyProcess, "inserting sale").Logger()
	logger.Trace().Msg("inserting sale")
	totals := checkout.Totals
	tendered := checkout.Payment.Tendered
	if checkout.Payment.Method == engine.PaymentCard {
		tendered = totals.Payable()
	}
	sale, err := queries.InsertSale(c, repository.InsertSaleParams{
		TenantID:        param.TenantID,
		TerminalID:      param.TerminalID,
		CountryCode:     param.CountryCode,
		PaymentMethod:   string(checkout.Payment.Method),
		Subtotal:        repository.Numeric(totals.Subtotal),
		Vat:             repository.Numeric(totals.Vat),
		TotalWithVat:    repository.Numeric(totals.TotalWithVat),
		RoundedTotal:    repository.Numeric(totals.RoundedTotal),
		RoundingDelta:   repository.Numeric(totals.RoundingDelta),
		Tendered:        repository.Numeric(tendered),
		ChangeAmount:    repository.Numeric(checkout.Change),
		AuthorizationID: param.AuthorizationID,
	})
	if err != nil {
		err = fmt.Errorf("failed inserting sale with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	logger = logger.With().Str(log.KeySaleID, sale.ID.String()).Logger()

	items := make([]repository.SaleItem, 0, len(checkout.Lines))
	for _, line := range checkout.Lines {
		item, err := queries.InsertSaleItem(c, repository.InsertSaleItemParams{
			SaleID:    sale.ID,
			ProductID: line.ProductID,
			UnitPrice: repository.Numeric(line.UnitPrice),
			Quantity:  int32(line.Quantity),
			LineTotal: repository.Numeric(line.LineTotal()),
		})
		if err != nil {
			err = fmt.Errorf("failed inserting sale item with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Sale{}, err
		}
		items = append(items, item)
	}
	logger.Trace().Msg("inserted sale")

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	if err = tx.Commit(c); err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	res = sale.Response(items)
	logger.Info().Str(log.KeyCartTotals, totals.RoundedTotal.String()).Msg("recorded sale")

	svc.announce(c, res, productIDs)
	return res, nil
}

// announce tells the other terminals about the sale. Failures are logged only since
// the sale is already committed.
func (svc *SaleService) announce(c context.Context, sale response.Sale, productIDs []uuid.UUID) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleService announce").
		Str(log.KeySaleID, sale.ID.String()).
		Logger()

	if svc.cache != nil {
		payload, err := json.Marshal(event.StockUpdated{
			OccurredAt: time.Now().UTC(),
			SaleID:     sale.ID,
			TenantID:   sale.TenantID,
			ProductIDs: productIDs,
		})
		if err == nil {
			err = svc.cache.Publish(c, constants.ChannelStockUpdated, payload).Err()
		}
		if err != nil {
			logger.Warn().Err(err).Str(log.KeyChannel, constants.ChannelStockUpdated).Msg("failed publishing stock update")
		}
	}

	if svc.publisher != nil {
		if err := svc.publisher.PublishSaleRecorded(c, sale); err != nil {
			logger.Warn().Err(err).Msg("failed publishing sale recorded event")
		}
	}
}

func (svc *SaleService) FindSaleById(c context.Context, tenantID uuid.UUID, saleID uuid.UUID) (response.Sale, error) {
	c, span := otel.Tracer.Start(c, "SaleService FindSaleById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleService FindSaleById").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeySaleID, saleID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding sale").Logger()
	logger.Trace().Msg("finding sale")
	sale, err := svc.queries.FindSaleById(c, repository.FindSaleByIdParams{TenantID: tenantID, ID: saleID})
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("saleId=%s %w", saleID, inErrors.ErrSaleNotFound)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding sale with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	logger.Trace().Msg("found sale")

	logger = logger.With().Str(log.KeyProcess, "finding sale items").Logger()
	logger.Trace().Msg("finding sale items")
	items, err := svc.queries.FindSaleItemsBySaleId(c, saleID)
	if err != nil {
		err = fmt.Errorf("failed finding sale items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Sale{}, err
	}
	logger.Trace().Int(log.KeySaleItems, len(items)).Msg("found sale items")

	return sale.Response(items), nil
}

// FindSales lists sale headers, newest first. Items are not loaded.
func (svc *SaleService) FindSales(c context.Context, tenantID uuid.UUID, param request.FindSales) ([]response.Sale, error) {
	c, span := otel.Tracer.Start(c, "SaleService FindSales")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SaleService FindSales").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyProcess, "finding sales").
		Logger()

	if param.Limit == 0 {
		param.Limit = defaultPageSize
	}

	logger.Trace().Msg("finding sales")
	sales, err := svc.queries.FindSales(c, repository.FindSalesParams{
		TenantID:   tenantID,
		TerminalID: param.TerminalID,
		Limit:      param.Limit,
		Offset:     param.Offset,
	})
	if err != nil {
		err = fmt.Errorf("failed finding sales with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeySales, len(sales)).Msg("found sales")

	res := make([]response.Sale, 0, len(sales))
	for _, s := range sales {
		res = append(res, s.Response(nil))
	}
	return res, nil
}

// Total sums the payable amount of the given sales.
func Total(sales []response.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.RoundedTotal)
	}
	return total
}
