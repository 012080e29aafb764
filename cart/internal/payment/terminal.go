// Package payment authorizes card payments on the terminal that serves a cart.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/internal/otel"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
)

var (
	ErrApprovalRequired      = errors.New("card approval code is required")
	ErrInvalidAmount         = errors.New("authorization amount must be positive")
	ErrDuplicateApproval     = errors.New("approval code was already used")
	ErrAuthorizationNotFound = errors.New("authorization not found")
)

type AuthorizationRequest struct {
	Amount       decimal.Decimal
	TerminalID   string
	ApprovalCode string
	TenantID     uuid.UUID
}

type Authorization struct {
	ApprovedAt time.Time       `json:"approved_at"`
	Amount     decimal.Decimal `json:"amount"`
	ID         string          `json:"id"`
}

type Terminal interface {
	Authorize(c context.Context, req AuthorizationRequest) (Authorization, error)
	Void(c context.Context, authorizationID string) error
}

// ManualTerminal backs terminals with a standalone card reader. The cashier charges
// the card on the reader and types the approval code printed on the voucher; the
// code becomes the authorization id. A void only releases the code here, the
// cashier reverses the charge on the reader.
type ManualTerminal struct {
	mu       sync.Mutex
	approved map[string]Authorization
	now      func() time.Time
}

func NewManualTerminal() *ManualTerminal {
	return &ManualTerminal{approved: map[string]Authorization{}, now: time.Now}
}

func (m *ManualTerminal) Authorize(c context.Context, req AuthorizationRequest) (Authorization, error) {
	_, span := otel.Tracer.Start(c, "ManualTerminal Authorize")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ManualTerminal Authorize").
		Str(log.KeyTerminalID, req.TerminalID).
		Str(log.KeyProcess, "authorizing card payment").
		Logger()

	if req.ApprovalCode == "" {
		inOtel.RecordError(ErrApprovalRequired, span)
		logger.Info().Err(ErrApprovalRequired).Msg(ErrApprovalRequired.Error())
		return Authorization{}, ErrApprovalRequired
	}
	if !req.Amount.IsPositive() {
		err := fmt.Errorf("%w: amount=%s", ErrInvalidAmount, req.Amount)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return Authorization{}, err
	}

	id := fmt.Sprintf("%s:%s:%s", req.TenantID, req.TerminalID, req.ApprovalCode)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.approved[id]; ok {
		err := fmt.Errorf("%w: approvalCode=%s", ErrDuplicateApproval, req.ApprovalCode)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return Authorization{}, err
	}
	authorization := Authorization{ApprovedAt: m.now().UTC(), Amount: req.Amount, ID: id}
	m.approved[id] = authorization

	logger.Info().Str(log.KeyAuthorizationID, id).Msg("authorized card payment")
	return authorization, nil
}

func (m *ManualTerminal) Void(c context.Context, authorizationID string) error {
	_, span := otel.Tracer.Start(c, "ManualTerminal Void")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ManualTerminal Void").
		Str(log.KeyAuthorizationID, authorizationID).
		Logger()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.approved[authorizationID]; !ok {
		inOtel.RecordError(ErrAuthorizationNotFound, span)
		logger.Error().Err(ErrAuthorizationNotFound).Msg(ErrAuthorizationNotFound.Error())
		return ErrAuthorizationNotFound
	}
	delete(m.approved, authorizationID)
	logger.Warn().Msg("voided card authorization, reverse the charge on the card reader")
	return nil
}
