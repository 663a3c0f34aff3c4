package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(addItemRequest{ProductID: "P1", Quantity: 1}))

	err := Validate(addItemRequest{Quantity: 0})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"product_id": "is required",
		"quantity":   "must be greater than 0",
	}, verr.Fields())
	assert.Contains(t, verr.Error(), "field 'product_id' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	var req addItemRequest
	require.NoError(t, DecodeAndValidate(strings.NewReader(`{"product_id":"P1","quantity":2}`), &req))
	assert.Equal(t, addItemRequest{ProductID: "P1", Quantity: 2}, req)

	err := DecodeAndValidate(strings.NewReader(`{"product_id":`), &req)
	assert.ErrorContains(t, err, "decode request body")
}
