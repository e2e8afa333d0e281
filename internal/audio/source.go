package audio

import (
	log "log/slog"

	"github.com/gordonklaus/portaudio"
)

// Init prepares the PortAudio host API. Call once per process.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the host API.
func Terminate() {
	portaudio.Terminate()
}

// StreamConfig describes the capture stream requested from the driver.
type StreamConfig struct {
	SampleRate int
	Channels   int
	FrameSize  int // samples per channel per callback
}

func (c StreamConfig) validate() error {
	if c.SampleRate <= 0 {
		return &ConfigError{Param: "sample rate", Value: c.SampleRate}
	}
	if c.Channels <= 0 {
		return &ConfigError{Param: "channels", Value: c.Channels}
	}
	if c.FrameSize <= 0 {
		return &ConfigError{Param: "frame size", Value: c.FrameSize}
	}
	return nil
}

// Source owns one PortAudio input stream. The driver callback copies
// each buffer onto the queue and nothing else; it must never block.
type Source struct {
	stream *portaudio.Stream
}

// OpenSource starts continuous capture into q. A driver overflow is
// logged and the delivered samples are still kept; losing data is
// worse than the warning.
func OpenSource(cfg StreamConfig, q *FrameQueue) (*Source, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.Channels, 0,
		float64(cfg.SampleRate), cfg.FrameSize,
		func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			if flags&(portaudio.InputOverflow|portaudio.InputUnderflow) != 0 {
				log.Warn("Input over/underflow", "samples", len(in))
			}
			f := make(Frame, len(in))
			copy(f, in)
			q.Push(f)
		},
	)
	if err != nil {
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	return &Source{stream: stream}, nil
}

// Close stops capture and releases the device.
func (s *Source) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
