package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/auth"
	inErrors "github.com/Alturino/pos/internal/errors"
	inHttp "github.com/Alturino/pos/internal/http"
	"github.com/Alturino/pos/internal/log"
)

func Auth(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.KeyHeaderAuthorization)
			scheme, token, found := strings.Cut(authorization, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
				return
			}

			claims, err := auth.VerifyToken(c, secret, token)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}

			logger = logger.With().
				Str(log.KeyTenantID, claims.TenantID.String()).
				Str(log.KeyTerminalID, claims.TerminalID).
				Logger()
			c = logger.WithContext(c)
			c = auth.AttachClaimsToContext(c, claims)

			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
