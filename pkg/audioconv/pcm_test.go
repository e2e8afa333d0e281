package audioconv

import (
	"math"
	"testing"
)

func TestDownmix(t *testing.T) {
	cases := []struct {
		name     string
		in       []float32
		channels int
		want     []float32
	}{
		{"mono passthrough", []float32{0.1, 0.2}, 1, []float32{0.1, 0.2}},
		{"stereo average", []float32{1, 0, 0.5, 0.5, -1, 1}, 2, []float32{0.5, 0.5, 0}},
		{"quad average", []float32{1, 1, 1, 1, 0, 0, 0, 0.4}, 4, []float32{1, 0.1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Downmix(tc.in, tc.channels)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tc.want))
			}
			for i := range tc.want {
				if math.Abs(float64(got[i]-tc.want[i])) > 1e-6 {
					t.Fatalf("sample %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	got := Resample(in, 16000, 16000)
	if len(got) != len(in) {
		t.Fatalf("got %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d changed", i)
		}
	}
}

func TestResampleLength(t *testing.T) {
	cases := []struct {
		inN, inSR, outSR, wantN int
	}{
		{48000, 48000, 16000, 16000},
		{16000, 16000, 8000, 8000},
		{8000, 8000, 16000, 16000},
	}
	for _, tc := range cases {
		got := Resample(make([]float32, tc.inN), tc.inSR, tc.outSR)
		if len(got) != tc.wantN {
			t.Fatalf("%d @ %d -> %d: got %d samples, want %d",
				tc.inN, tc.inSR, tc.outSR, len(got), tc.wantN)
		}
	}
}

func TestResamplePreservesConstantSignal(t *testing.T) {
	in := make([]float32, 4800)
	for i := range in {
		in[i] = 0.25
	}
	for _, v := range Resample(in, 48000, 16000) {
		if math.Abs(float64(v)-0.25) > 1e-6 {
			t.Fatalf("constant signal distorted: %v", v)
		}
	}
}

func TestInt16sToFloat32Scaling(t *testing.T) {
	in := []int16{0, 16384, -16384, 32767, -32768}
	got := int16sToFloat32(in)
	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-4 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}
