package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

const otpDigits = 6

var otpMax = big.NewInt(1_000_000)

// generateOTP returns a random, zero padded, 6 digits code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", errors.Wrap(err, "reading random")
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
