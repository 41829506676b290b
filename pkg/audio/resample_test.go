package audio

import (
	"math"
	"testing"
)

func TestResampleSameRateReturnsInput(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Error("expected same-rate resample to return the input slice unchanged")
	}
}

func TestResampleLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		srcLen   int
		srcRate  int
		dstRate  int
		wantLen  int
	}{
		{"downsample 48k to 16k", 1440, 48000, 16000, 480},
		{"downsample 44.1k to 16k", 1323, 44100, 16000, 480},
		{"upsample 8k to 16k", 240, 8000, 16000, 480},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := make([]float32, tt.srcLen)
			out := Resample(in, tt.srcRate, tt.dstRate)
			if len(out) != tt.wantLen {
				t.Errorf("len(out) = %d, want %d", len(out), tt.wantLen)
			}
		})
	}
}

func TestResamplePreservesConstantSignal(t *testing.T) {
	t.Parallel()

	in := make([]float32, 1440)
	for i := range in {
		in[i] = 0.5
	}
	out := Resample(in, 48000, 16000)
	for i, s := range out {
		if math.Abs(float64(s)-0.5) > 1e-6 {
			t.Fatalf("out[%d] = %f, want 0.5", i, s)
		}
	}
}

func TestResampleInterpolatesBetweenSamples(t *testing.T) {
	t.Parallel()

	// Upsampling a two-point ramp by 2x must place the midpoint between them.
	in := []float32{0, 1}
	out := Resample(in, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4", len(out))
	}
	if math.Abs(float64(out[1])-0.5) > 1e-6 {
		t.Errorf("out[1] = %f, want 0.5", out[1])
	}
}

func TestResampleToPadsAndTruncates(t *testing.T) {
	t.Parallel()

	in := make([]float32, 100)
	for i := range in {
		in[i] = 0.25
	}

	short := ResampleTo(in, 44100, 16000, 480)
	if len(short) != 480 {
		t.Errorf("padded length = %d, want 480", len(short))
	}
	if short[479] != 0.25 {
		t.Errorf("pad should hold the last sample, got %f", short[479])
	}

	long := ResampleTo(in, 16000, 16000, 50)
	if len(long) != 50 {
		t.Errorf("truncated length = %d, want 50", len(long))
	}
}

func TestFrameDuration(t *testing.T) {
	t.Parallel()

	f := Frame{Samples: make([]float32, 480), SampleRate: 16000}
	if got := f.Duration().Milliseconds(); got != 30 {
		t.Errorf("Duration() = %dms, want 30ms", got)
	}
}
