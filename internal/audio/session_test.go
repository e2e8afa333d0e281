package audio

import (
	"errors"
	"io"
	"testing"
	"time"
)

type fakeStream struct {
	closes int
}

func (f *fakeStream) Close() error {
	f.closes++
	return nil
}

// testSession wires a Session to a fake driver: feed is invoked in
// place of the timed sleep, standing in for callbacks arriving during
// the capture window.
func testSession(cfg SessionConfig, feed func(*FrameQueue)) (*Session, *fakeStream) {
	stream := &fakeStream{}
	s := &Session{cfg: cfg}
	var queue *FrameQueue
	s.open = func(_ StreamConfig, q *FrameQueue) (io.Closer, error) {
		queue = q
		return stream, nil
	}
	s.sleep = func(time.Duration) {
		if feed != nil {
			feed(queue)
		}
	}
	return s, stream
}

func monoConfig(d time.Duration) SessionConfig {
	return SessionConfig{Duration: d, SampleRate: 16000, Channels: 1, FrameSize: 4}
}

func TestCaptureRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		opened := false
		s, _ := testSession(monoConfig(d), nil)
		s.open = func(StreamConfig, *FrameQueue) (io.Closer, error) {
			opened = true
			return &fakeStream{}, nil
		}

		_, err := s.Capture()

		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("duration %v: got %v, want ConfigError", d, err)
		}
		if opened {
			t.Fatalf("duration %v: device was opened before validation", d)
		}
	}
}

func TestCaptureEmptyWindow(t *testing.T) {
	s, stream := testSession(monoConfig(time.Second), nil)

	_, err := s.Capture()
	if !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("got %v, want ErrEmptyCapture", err)
	}
	if stream.closes != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closes)
	}
}

func TestCaptureConcatenatesInOrder(t *testing.T) {
	frames := []Frame{
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{8, 9}, // partial final frame is kept as-is
	}
	s, stream := testSession(monoConfig(time.Second), func(q *FrameQueue) {
		for _, f := range frames {
			q.Push(f)
		}
	})

	rec, err := s.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if len(rec.Samples) != 10 {
		t.Fatalf("got %d samples, want 10", len(rec.Samples))
	}
	for i, v := range rec.Samples {
		if v != float32(i) {
			t.Fatalf("sample %d = %v, want %v", i, v, float32(i))
		}
	}
	if rec.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rec.SampleRate)
	}
	if stream.closes != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closes)
	}
}

func TestCaptureFrameSizeInvariance(t *testing.T) {
	// The same sample stream chopped into different frame shapes must
	// concatenate identically.
	chopings := [][]int{
		{10},
		{1, 2, 3, 4},
		{4, 4, 2},
	}

	var first []float32
	for _, sizes := range chopings {
		next := 0
		var frames []Frame
		for _, n := range sizes {
			f := make(Frame, n)
			for i := range f {
				f[i] = float32(next)
				next++
			}
			frames = append(frames, f)
		}

		s, _ := testSession(monoConfig(time.Second), func(q *FrameQueue) {
			for _, f := range frames {
				q.Push(f)
			}
		})

		rec, err := s.Capture()
		if err != nil {
			t.Fatalf("chopping %v: %v", sizes, err)
		}
		if first == nil {
			first = rec.Samples
			continue
		}
		if len(rec.Samples) != len(first) {
			t.Fatalf("chopping %v: %d samples, want %d", sizes, len(rec.Samples), len(first))
		}
		for i := range first {
			if rec.Samples[i] != first[i] {
				t.Fatalf("chopping %v: sample %d differs", sizes, i)
			}
		}
	}
}

func TestCaptureDownmixesStereo(t *testing.T) {
	cfg := monoConfig(time.Second)
	cfg.Channels = 2

	s, _ := testSession(cfg, func(q *FrameQueue) {
		// interleaved L,R pairs
		q.Push(Frame{0.2, 0.4, -0.5, 0.5})
	})

	rec, err := s.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(rec.Samples) != 2 {
		t.Fatalf("got %d mono samples, want 2", len(rec.Samples))
	}
	const eps = 1e-6
	if diff := rec.Samples[0] - 0.3; diff > eps || diff < -eps {
		t.Fatalf("sample 0 = %v, want 0.3", rec.Samples[0])
	}
	if rec.Samples[1] != 0 {
		t.Fatalf("sample 1 = %v, want 0", rec.Samples[1])
	}
}

func TestCaptureFullWindowSampleCount(t *testing.T) {
	// 5 s at 16 kHz delivered as 1024-sample frames plus remainder.
	const total = 5 * 16000

	s, stream := testSession(monoConfig(5*time.Second), func(q *FrameQueue) {
		left := total
		for left > 0 {
			n := 1024
			if n > left {
				n = left
			}
			q.Push(make(Frame, n))
			left -= n
		}
	})

	rec, err := s.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(rec.Samples) != total {
		t.Fatalf("got %d samples, want %d", len(rec.Samples), total)
	}
	if rec.Seconds() != 5 {
		t.Fatalf("recording is %v s, want 5", rec.Seconds())
	}
	if stream.closes != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closes)
	}
}

func TestCaptureOpenFailure(t *testing.T) {
	boom := errors.New("device busy")
	s, _ := testSession(monoConfig(time.Second), nil)
	s.open = func(StreamConfig, *FrameQueue) (io.Closer, error) {
		return nil, boom
	}

	_, err := s.Capture()
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want open error", err)
	}
}

func TestStreamConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  StreamConfig
		ok   bool
	}{
		{"valid", StreamConfig{16000, 1, 1024}, true},
		{"zero rate", StreamConfig{0, 1, 1024}, false},
		{"negative rate", StreamConfig{-1, 1, 1024}, false},
		{"zero channels", StreamConfig{16000, 0, 1024}, false},
		{"zero frame", StreamConfig{16000, 1, 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("got %v, want ConfigError", err)
				}
			}
		})
	}
}
