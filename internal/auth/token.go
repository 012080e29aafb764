package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/constants"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/log"
)

type Claims struct {
	jwt.RegisteredClaims
	TenantID   uuid.UUID `json:"tenant_id"`
	TerminalID string    `json:"terminal_id"`
}

type claimsKey struct{}

func ClaimsFromContext(c context.Context) (Claims, error) {
	claims, ok := c.Value(claimsKey{}).(Claims)
	if !ok {
		return Claims{}, inErrors.ErrMissingClaims
	}
	return claims, nil
}

func AttachClaimsToContext(c context.Context, claims Claims) context.Context {
	return context.WithValue(c, claimsKey{}, claims)
}

func IssueToken(
	secret []byte,
	tenantID uuid.UUID,
	terminalID string,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.AppPos,
			Subject:   terminalID,
			Audience:  jwt.ClaimStrings{constants.AudienceTerminal},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TenantID:   tenantID,
		TerminalID: terminalID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed signing token with error=%w", err)
	}
	return token, nil
}

func VerifyToken(c context.Context, secret []byte, token string) (Claims, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "VerifyToken").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	claims := Claims{}
	jwtToken, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithAudience(constants.AudienceTerminal),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.AppPos),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing with claims with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return Claims{}, err
	}
	logger.Trace().Msg("parsed claims")

	logger = logger.With().Str(log.KeyProcess, "validating token").Logger()
	logger.Trace().Msg("validating token")
	if !jwtToken.Valid {
		logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
		return Claims{}, inErrors.ErrTokenInvalid
	}
	if claims.TenantID == uuid.Nil || claims.TerminalID == "" {
		logger.Error().Err(inErrors.ErrEmptySubject).Msg(inErrors.ErrEmptySubject.Error())
		return Claims{}, inErrors.ErrEmptySubject
	}
	logger.Trace().
		Str(log.KeyTenantID, claims.TenantID.String()).
		Str(log.KeyTerminalID, claims.TerminalID).
		Msg("validated token")

	return claims, nil
}
