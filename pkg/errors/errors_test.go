package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrInsufficientInventory(t *testing.T) {
	err := ErrInsufficientInventory("BKT-1", 10, 4)

	assert.Equal(t, CodeInsufficientInventory, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "6", err.Details["shortfall"])
	assert.Equal(t, "BKT-1", err.Details["bucketId"])

	wrapped := fmt.Errorf("reserve: %w", err)
	shortfall, ok := Shortfall(wrapped)
	require.True(t, ok)
	assert.Equal(t, 6, shortfall)
	assert.True(t, errors.Is(wrapped, KindInsufficientInventory))
	assert.False(t, errors.Is(wrapped, KindDuplicate))
}

func TestShortfall_NotInventoryError(t *testing.T) {
	_, ok := Shortfall(ErrValidation("bad"))
	assert.False(t, ok)

	_, ok = Shortfall(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrDuplicate(t *testing.T) {
	err := ErrDuplicate("barcode", "PKG-9")

	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Equal(t, "PKG-9", err.Details["barcode"])
	assert.True(t, errors.Is(err, KindDuplicate))
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"app error passthrough", ErrDependencyFailed("inventory", "debit"), CodeDependencyFailed},
		{"not found", errors.New("bucket not found"), CodeNotFound},
		{"duplicate", errors.New("duplicate key"), CodeDuplicate},
		{"invalid", errors.New("invalid status transition"), CodeValidationError},
		{"fallback", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapDomainError(tt.err).Code)
		})
	}

	assert.Nil(t, MapDomainError(nil))
}
