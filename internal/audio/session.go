package audio

import (
	"io"
	"time"

	log "log/slog"

	"hark/pkg/audioconv"
)

// SessionConfig describes one timed capture window.
type SessionConfig struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	FrameSize  int
}

// Recording is the output of one capture window: mono samples in
// capture order.
type Recording struct {
	Samples    []float32
	SampleRate int
}

// Seconds returns the recorded length in wall-clock terms.
func (r Recording) Seconds() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(len(r.Samples)) / float64(r.SampleRate)
}

type opener func(StreamConfig, *FrameQueue) (io.Closer, error)

// Session runs open-loop timed captures. Each Capture call owns a
// fresh queue; nothing is shared between invocations.
type Session struct {
	cfg   SessionConfig
	open  opener
	sleep func(time.Duration)
}

func NewSession(cfg SessionConfig) *Session {
	return &Session{
		cfg: cfg,
		open: func(sc StreamConfig, q *FrameQueue) (io.Closer, error) {
			return OpenSource(sc, q)
		},
		sleep: time.Sleep,
	}
}

// Capture records for the configured window and concatenates every
// frame the driver delivered, in arrival order. The device is released
// before the queue is drained, so everything pushed during the window
// is visible to the drain. Multi-channel input is downmixed to mono.
func (s *Session) Capture() (Recording, error) {
	if s.cfg.Duration <= 0 {
		return Recording{}, &ConfigError{Param: "duration", Value: s.cfg.Duration}
	}

	q := NewFrameQueue()
	src, err := s.open(StreamConfig{
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		FrameSize:  s.cfg.FrameSize,
	}, q)
	if err != nil {
		return Recording{}, err
	}

	s.sleep(s.cfg.Duration)

	if cerr := src.Close(); cerr != nil {
		// the window is over either way; keep what arrived
		log.Warn("Failed to close capture stream", "err", cerr)
	}

	frames := q.DrainAll()
	if len(frames) == 0 {
		return Recording{}, ErrEmptyCapture
	}

	total := 0
	for _, f := range frames {
		total += len(f)
	}

	samples := make([]float32, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}

	if s.cfg.Channels > 1 {
		samples = audioconv.Downmix(samples, s.cfg.Channels)
	}

	return Recording{Samples: samples, SampleRate: s.cfg.SampleRate}, nil
}
