package form

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	VariantID int64 `json:"variantId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

type order struct {
	Name    string `json:"customerName" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"required,min=9"`
	Payment string `json:"paymentMethod" validate:"oneof=COD VNPAY MOMO"`
	Items   []item `json:"items" validate:"required,min=1,dive"`
}

func TestCheckUsesJSONNames(t *testing.T) {
	fe := Check(order{
		Email:   "nope",
		Phone:   "123",
		Payment: "CASH",
		Items:   []item{{VariantID: 1, Quantity: 0}},
	})
	require.NotNil(t, fe)

	assert.Equal(t, "is required", fe["customerName"])
	assert.Equal(t, "must be a valid email address", fe["email"])
	assert.Equal(t, "must be at least 9 characters", fe["phone"])
	assert.Equal(t, "must be one of COD VNPAY MOMO", fe["paymentMethod"])
	assert.Equal(t, "must be greater than 0", fe["items[0].quantity"])
}

func TestCheckValid(t *testing.T) {
	fe := Check(order{Name: "An", Phone: "0901234567", Payment: "COD", Items: []item{{VariantID: 1, Quantity: 1}}})
	assert.Nil(t, fe)
	assert.NoError(t, fe.Err())
}

func TestFieldErrorsAsError(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("code", "already exists")
	fe.Add("code", "ignored")
	fe.Add("endDate", "must not be before startDate")

	err := fmt.Errorf("save coupon: %w", fe.Err())
	got, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "already exists", got["code"])
	assert.Equal(t, "invalid form: code: already exists; endDate: must not be before startDate", fe.Error())
}
