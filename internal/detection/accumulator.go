package detection

// windowSum is the integer width used for running window sums.
type windowSum interface {
	~uint16 | ~uint32
}

// determineRowSums writes len(row)-window+1 sums into sums, where sums[i]
// covers row[i : i+window]. The sum is primed over window-1 samples and then
// updated by one add and one subtract per position.
func determineRowSums[S windowSum](row []uint8, window int, sums []S) {
	var sum S
	for i := 0; i < window-1; i++ {
		sum += S(row[i])
	}
	for i := 0; i+window <= len(row); i++ {
		sum += S(row[i+window-1])
		sums[i] = sum
		sum -= S(row[i])
	}
}

// determineRowSumsAndSquares is determineRowSums plus the window sums of squared samples.
func determineRowSumsAndSquares[S windowSum](row []uint8, window int, sums []S, sqrSums []uint32) {
	var sum S
	var sqrSum uint32
	for i := 0; i < window-1; i++ {
		v := row[i]
		sum += S(v)
		sqrSum += uint32(v) * uint32(v)
	}
	for i := 0; i+window <= len(row); i++ {
		in := row[i+window-1]
		sum += S(in)
		sqrSum += uint32(in) * uint32(in)
		sums[i] = sum
		sqrSums[i] = sqrSum

		out := row[i]
		sum -= S(out)
		sqrSum -= uint32(out) * uint32(out)
	}
}

// applyRowSum adds (or removes) one image row to per-column running sums.
func applyRowSum[S windowSum](row []uint8, sums []S, add bool) {
	if add {
		for i, v := range row {
			sums[i] += S(v)
		}
		return
	}
	for i, v := range row {
		sums[i] -= S(v)
	}
}

// applyRowSumAndSquares adds (or removes) one image row to per-column sums and squared sums.
func applyRowSumAndSquares[S windowSum](row []uint8, sums []S, sqrSums []uint32, add bool) {
	if add {
		for i, v := range row {
			sums[i] += S(v)
			sqrSums[i] += uint32(v) * uint32(v)
		}
		return
	}
	for i, v := range row {
		sums[i] -= S(v)
		sqrSums[i] -= uint32(v) * uint32(v)
	}
}

// requiredSumBits returns the narrowest unsigned width able to hold window*255.
func requiredSumBits(window int) int {
	switch {
	case window*255 <= 1<<16-1:
		return 16
	case uint64(window)*255 <= 1<<32-1:
		return 32
	}
	return 64
}

// requiredSqrSumBits returns the narrowest unsigned width able to hold window*255².
func requiredSqrSumBits(window int) int {
	switch {
	case window*255*255 <= 1<<16-1:
		return 16
	case uint64(window)*255*255 <= 1<<32-1:
		return 32
	}
	return 64
}

// accumulatorPolicy records the accumulator widths a kernel is built on and
// the largest window those widths (and its response arithmetic) allow.
type accumulatorPolicy struct {
	sumBits    int
	sqrSumBits int // 0 when the kernel needs no squared sums
	maxWindow  int
	limit      string
}

var accumulatorPolicies = [...]accumulatorPolicy{
	KindRMSBar: {
		sumBits: 16, sqrSumBits: 32, maxWindow: 11,
		limit: "peak²*64 of the bar response is sized for windows up to 11",
	},
	KindRMSStep: {
		sumBits: 16, sqrSumBits: 32, maxWindow: 255,
		limit: "window*sqrSum must stay within 32 bits",
	},
	KindRMSBarF: {
		sumBits: 32, sqrSumBits: 32, maxWindow: 66051,
		limit: "squared sums are 32 bits",
	},
	KindRMSStepF: {
		sumBits: 32, sqrSumBits: 32, maxWindow: 66051,
		limit: "squared sums are 32 bits",
	},
	KindADBar: {
		sumBits: 32, maxWindow: 42,
		limit: "3*255*window must fit a 16-bit response",
	},
	KindSDStep: {
		sumBits: 16, maxWindow: 127,
		limit: "window*255 must fit a 16-bit response",
	},
}

// policyAllows reports whether window satisfies the kind's width policy.
func policyAllows(kind DetectorKind, window int) bool {
	if window < 1 {
		return false
	}
	p := accumulatorPolicies[kind]
	if window > p.maxWindow {
		return false
	}
	if requiredSumBits(window) > p.sumBits {
		return false
	}
	return p.sqrSumBits == 0 || requiredSqrSumBits(window) <= p.sqrSumBits
}
