package storefront

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// DefaultOTPTTL is how long a registration code stays valid
	DefaultOTPTTL = 10 * time.Minute

	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator produces verification codes.
type OTPGenerator func() (string, error)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenerateOTP returns a uniformly random code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
