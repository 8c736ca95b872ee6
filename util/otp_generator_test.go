package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOTP_SixDigits(t *testing.T) {
	for i := 0; i < 20; i++ {
		otp := GenerateOTP()

		assert.Len(t, otp, 6)

		// Always parses as a number in the no-leading-zero range.
		num, err := strconv.Atoi(otp)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, num, 100000)
		assert.LessOrEqual(t, num, 999999)
	}
}

func TestGenerateOTP_Varies(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		seen[GenerateOTP()] = true
	}
	// Ten draws from a 900k space collapsing to one value means a broken
	// source, not bad luck.
	assert.Greater(t, len(seen), 1)
}
