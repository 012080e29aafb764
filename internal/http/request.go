package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	inErrors "github.com/Alturino/pos/internal/errors"
)

func DecodeAndValidate(r *http.Request, validate *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed decoding request body with error=%w", err)
	}
	if err := validate.StructCtx(r.Context(), dst); err != nil {
		return fmt.Errorf("failed validating request body with error=%w", err)
	}
	return nil
}

func PathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w %s: %w", inErrors.ErrInvalidPathParam, key, err)
	}
	return id, nil
}

// QueryInt32 returns fallback when key is absent.
func QueryInt32(r *http.Request, key string, fallback int32) (int32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid query parameter %s: %w", key, err)
	}
	return int32(n), nil
}
