package solana

import "math"

// EstimateDifficulty returns the expected number of candidate keys per match: one in
// 58^n, where n is the combined pattern length. It saturates at math.MaxUint64.
//
// Leading characters of real addresses are not uniformly distributed, so this is an
// estimate for display only.
func EstimateDifficulty(prefix, suffix string) uint64 {
	difficulty := uint64(1)
	for i := 0; i < len(prefix)+len(suffix); i++ {
		if difficulty > math.MaxUint64/58 {
			return math.MaxUint64
		}
		difficulty *= 58
	}
	return difficulty
}
