package testutil

import (
	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
)

// RandomAccount generates a random account identifier for the simulated
// chain.
func RandomAccount() string {
	return "acct-" + gofakeit.LetterN(12)
}

// RandomAmount generates a random positive amount up to max.
func RandomAmount(max int64) sdkmath.Int {
	if max <= 0 {
		return sdkmath.OneInt()
	}
	return sdkmath.NewInt(int64(gofakeit.Number(1, int(max))))
}

// RandomBps generates a random basis-point value within [min, max].
func RandomBps(min, max int64) int64 {
	return int64(gofakeit.Number(int(min), int(max)))
}
