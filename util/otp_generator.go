package util

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// GenerateOTP returns a 6-digit one-time code.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "000000"
	}
	return strconv.FormatInt(n.Int64()+100000, 10)
}
