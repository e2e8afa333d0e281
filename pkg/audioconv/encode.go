package audioconv

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono float32 samples as 16-bit PCM at rate Hz.
func WriteWAV(path string, samples []float32, rate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to write")
	}
	if rate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", rate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		buf.Data[i] = int(clamp(float64(v), -1.0, 1.0) * 32767)
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// WriteTempWAV persists samples to a fresh artifact under the system
// temp dir and returns its path. The caller owns the file.
func WriteTempWAV(samples []float32, rate int) (string, error) {
	f, err := os.CreateTemp("", "hark-*.wav")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := WriteWAV(path, samples, rate); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
