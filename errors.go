package storefront

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation        = "VALIDATION_FAILED"
	TextCodeDuplicateEmail    = "DUPLICATE_EMAIL"
	TextCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	TextCodeInvalidOTP        = "INVALID_OTP"
	TextCodeOTPExpired        = "OTP_EXPIRED"
	TextCodeTooManyAttempts   = "TOO_MANY_OTP_ATTEMPTS"
	TextCodeInvalidCredential = "INVALID_CREDENTIALS"
	TextCodeNotVerified       = "EMAIL_NOT_VERIFIED"
	TextCodeWrongPassword     = "WRONG_CURRENT_PASSWORD"
	TextCodeUnauthenticated   = "UNAUTHENTICATED"
	TextCodeForbiddenRole     = "FORBIDDEN_ROLE"
	TextCodeMailDispatch      = "MAIL_DISPATCH_FAILED"
	TextCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	TextCodeMalformedPayload  = "MALFORMED_PAYLOAD"
	TextCodeRateLimited       = "RATE_LIMITED"
	TextCodeInconsistentState = "INCONSISTENT_ACCOUNT_STATE"
)

// ErrAccountNotFound is returned when no account matches the OTP email
var ErrAccountNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(http.StatusNotFound)

// ErrInvalidOTP is returned when the code does not match or was already used
var ErrInvalidOTP = goerrors.New("Invalid OTP", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidOTP).
	WithCode(http.StatusBadRequest)

// ErrOTPExpired is returned when a matching code is used at or after its expiry
var ErrOTPExpired = goerrors.New("OTP expired", goerrors.CategoryBadInput).
	WithTextCode(TextCodeOTPExpired).
	WithCode(http.StatusBadRequest)

// ErrTooManyAttempts is returned once an email exhausted its failed OTP budget
var ErrTooManyAttempts = goerrors.New("Too many OTP attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrInvalidCredentials is the single login failure for unknown email and wrong password
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(http.StatusUnauthorized)

// ErrNotVerified is returned when a pending account tries to log in
var ErrNotVerified = goerrors.New("Email not verified. Please verify with OTP.", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(http.StatusForbidden)

// ErrWrongPassword is returned when the current password does not match
var ErrWrongPassword = goerrors.New("Current password is incorrect", goerrors.CategoryBadInput).
	WithTextCode(TextCodeWrongPassword).
	WithCode(http.StatusBadRequest)

// ErrUnauthenticated is returned when a request has no usable bearer token
var ErrUnauthenticated = goerrors.New("Unauthenticated.", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(http.StatusUnauthorized)

// NewForbiddenRoleError is returned when the resolved account lacks the
// required role.
func NewForbiddenRoleError(required Role) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("Forbidden: Only %s can access this", required), goerrors.CategoryAuthz).
		WithTextCode(TextCodeForbiddenRole).
		WithCode(http.StatusForbidden).
		WithMetadata(map[string]any{
			"required_role": string(required),
		})
}

// ErrProductNotFound is returned for unknown product ids
var ErrProductNotFound = goerrors.New("Product not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProductNotFound).
	WithCode(http.StatusNotFound)

// ErrMalformedPayload is returned when the request body cannot be decoded
var ErrMalformedPayload = goerrors.New("Invalid request body", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedPayload).
	WithCode(http.StatusBadRequest)

// ErrRateLimited is returned by the request rate limiter
var ErrRateLimited = goerrors.New("Too many requests", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

// ErrInconsistentState is returned when a stored account is neither cleanly
// pending nor cleanly verified.
var ErrInconsistentState = goerrors.New("account verification state is inconsistent", goerrors.CategoryInternal).
	WithTextCode(TextCodeInconsistentState).
	WithCode(http.StatusInternalServerError)

// NewValidationError builds a field scoped validation failure.
func NewValidationError(fields map[string]string) *goerrors.Error {
	return goerrors.NewValidationFromMap("The given data was invalid.", fields).
		WithTextCode(TextCodeValidation).
		WithCode(http.StatusUnprocessableEntity)
}

// NewDuplicateEmailError reports an email already used by another account.
func NewDuplicateEmailError() *goerrors.Error {
	return goerrors.NewValidationFromMap("The email has already been taken.", map[string]string{
		"email": "The email has already been taken.",
	}).
		WithTextCode(TextCodeDuplicateEmail).
		WithCode(http.StatusUnprocessableEntity)
}

// NewMailDispatchError wraps a failed OTP delivery.
func NewMailDispatchError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "Failed to send OTP email. Registration cancelled.").
		WithTextCode(TextCodeMailDispatch).
		WithCode(http.StatusInternalServerError).
		WithMetadata(map[string]any{
			"error": err.Error(),
		})
}

// HasTextCode reports whether err is a rich error carrying code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// ValidationFields returns the field messages of a validation error.
func ValidationFields(err error) map[string]string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || len(richErr.ValidationErrors) == 0 {
		return nil
	}
	return richErr.ValidationMap()
}

// validationFailure runs an ozzo validation and reports field failures as
// a 422 validation error.
func validationFailure(validate func() error) error {
	if verr := goerrors.ValidateWithOzzo(validate, "The given data was invalid."); verr != nil {
		return verr.
			WithTextCode(TextCodeValidation).
			WithCode(http.StatusUnprocessableEntity)
	}
	return nil
}

// IsUniqueViolation checks the storage error message for a unique constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
