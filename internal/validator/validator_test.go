package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutForm struct {
	OrderID     string `json:"order_id" validate:"required,uuid4"`
	PhoneNumber string `json:"phone_number" validate:"required,is-msisdn"`
}

func TestValidateMSISDN(t *testing.T) {
	v := New()

	valid := []string{"254712345678", "254110123456", "254798765432"}
	for _, phone := range valid {
		err := v.Validate(checkoutForm{
			OrderID:     "9b2f8c44-1a2b-4c3d-8e4f-555555555555",
			PhoneNumber: phone,
		})
		assert.NoError(t, err, "phone %s", phone)
	}

	invalid := []string{
		"0712345678",     // local format, not E.164
		"+254712345678",  // plus prefix not accepted
		"254812345678",   // 8xx is not a Safaricom prefix
		"25471234567",    // too short
		"2547123456789",  // too long
		"254712345abc",   // non-numeric
	}
	for _, phone := range invalid {
		err := v.Validate(checkoutForm{
			OrderID:     "9b2f8c44-1a2b-4c3d-8e4f-555555555555",
			PhoneNumber: phone,
		})
		require.Error(t, err, "phone %s", phone)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		// Field names come from the json tag.
		assert.Contains(t, vErr.Errors, "phone_number")
	}
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(checkoutForm{})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors, "order_id")
	assert.Contains(t, vErr.Errors, "phone_number")
}
