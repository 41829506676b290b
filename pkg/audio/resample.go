package audio

// Resample converts mono float samples from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate (or either rate is invalid), the input
// is returned unchanged. Linear interpolation is good enough for speech
// heading into a recognizer; this is not a mastering-grade resampler.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}

		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// ResampleTo is like [Resample] but additionally pads or truncates the result
// to exactly dstLen samples. Capture sources use it to guarantee fixed-size
// frames at the target rate regardless of rounding in the rate conversion.
func ResampleTo(samples []float32, srcRate, dstRate, dstLen int) []float32 {
	out := Resample(samples, srcRate, dstRate)
	if len(out) == dstLen {
		return out
	}
	if len(out) > dstLen {
		return out[:dstLen]
	}
	padded := make([]float32, dstLen)
	copy(padded, out)
	if n := len(out); n > 0 {
		// Hold the last sample instead of dropping to zero mid-frame.
		for i := n; i < dstLen; i++ {
			padded[i] = out[n-1]
		}
	}
	return padded
}
