package storefront_test

import (
	"strings"
	"testing"

	storefront "github.com/goliatone/go-storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatable interface {
	Validate() error
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  validatable
		fields []string
	}{
		{
			name:  "register ok",
			input: storefront.RegisterInput{Name: "Ann", Email: "a@x.com", Password: "password1"},
		},
		{
			name:   "register short password",
			input:  storefront.RegisterInput{Name: "Ann", Email: "a@x.com", Password: "short"},
			fields: []string{"password"},
		},
		{
			name:   "register bad email and long name",
			input:  storefront.RegisterInput{Name: strings.Repeat("n", 256), Email: "nope", Password: "password1"},
			fields: []string{"name", "email"},
		},
		{
			name:  "verify ok",
			input: storefront.VerifyOTPInput{Email: "a@x.com", OTPCode: "012345"},
		},
		{
			name:   "verify five digits",
			input:  storefront.VerifyOTPInput{Email: "a@x.com", OTPCode: "12345"},
			fields: []string{"otp_code"},
		},
		{
			name:   "verify letters",
			input:  storefront.VerifyOTPInput{Email: "a@x.com", OTPCode: "12345a"},
			fields: []string{"otp_code"},
		},
		{
			name:  "login six char password",
			input: storefront.LoginInput{Email: "a@x.com", Password: "secret"},
		},
		{
			name:   "login missing fields",
			input:  storefront.LoginInput{},
			fields: []string{"email", "password"},
		},
		{
			name:  "profile empty update",
			input: storefront.UpdateProfileInput{},
		},
		{
			name:   "profile blank name",
			input:  storefront.UpdateProfileInput{Name: strPtr(""), Email: strPtr("bad")},
			fields: []string{"name", "email"},
		},
		{
			name: "password ok",
			input: storefront.ChangePasswordInput{
				CurrentPassword:         "secret",
				NewPassword:             "password2",
				NewPasswordConfirmation: "password2",
			},
		},
		{
			name: "password confirmation mismatch",
			input: storefront.ChangePasswordInput{
				CurrentPassword:         "secret",
				NewPassword:             "password2",
				NewPasswordConfirmation: "password3",
			},
			fields: []string{"new_password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, storefront.HasTextCode(err, storefront.TextCodeValidation))

			fields := storefront.ValidationFields(err)
			assert.Len(t, fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestValidateStringEquals(t *testing.T) {
	rule := storefront.ValidateStringEquals("abc")
	assert.NoError(t, rule("abc"))
	assert.EqualError(t, rule("abd"), "confirmation does not match")
}
