package storefront

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	maxNameLength       = 255
	maxEmailLength      = 255
	minPasswordLength   = 8
	minLoginPassword    = 6
	maxProductPrice     = 2147483647
	maxPasswordLength   = 255
	otpCodePatternValue = `^\d{6}$`
)

var otpCodePattern = regexp.MustCompile(otpCodePatternValue)

// RegisterInput is the registration payload
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r RegisterInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
			validation.Field(&r.Email, validation.Required, validation.Length(0, maxEmailLength), is.Email),
			validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		)
	})
}

// VerifyOTPInput is the OTP verification payload
type VerifyOTPInput struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

// Validate will validate the payload
func (r VerifyOTPInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(
				&r.OTPCode,
				validation.Required,
				validation.Match(otpCodePattern).Error("must be 6 digits"),
			),
		)
	})
}

// LoginInput is the login payload. The password floor is lower than the
// registration one.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required, validation.Length(minLoginPassword, maxPasswordLength)),
		)
	})
}

// UpdateProfileInput is a partial profile update; nil fields are left as is.
type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Validate will validate the payload
func (r UpdateProfileInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
			validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(0, maxEmailLength), is.Email),
		)
	})
}

// ChangePasswordInput is the password change payload
type ChangePasswordInput struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// Validate will validate the payload
func (r ChangePasswordInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.CurrentPassword, validation.Required, validation.Length(minLoginPassword, maxPasswordLength)),
			validation.Field(
				&r.NewPassword,
				validation.Required,
				validation.Length(minPasswordLength, maxPasswordLength),
				validation.By(ValidateStringEquals(r.NewPasswordConfirmation)),
			),
		)
	})
}

// ProductInput is the create and update payload for products. Numbers are
// pointers so a missing field and a zero stock can be told apart.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       *int64 `json:"price"`
	Stock       *int64 `json:"stock"`
}

// Validate will validate the payload
func (r ProductInput) Validate() error {
	return validationFailure(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
			validation.Field(&r.Description, validation.Required),
			validation.Field(
				&r.Price,
				validation.Required,
				validation.Min(int64(1)),
				validation.Max(int64(maxProductPrice)),
			),
			validation.Field(&r.Stock, validation.NotNil, validation.Min(int64(0))),
		)
	})
}

// apply copies the validated input onto p.
func (r ProductInput) apply(p *Product) {
	p.Name = r.Name
	p.Description = r.Description
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
}

// ValidateStringEquals checks the value equals str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("confirmation does not match")
		}
		return nil
	}
}
