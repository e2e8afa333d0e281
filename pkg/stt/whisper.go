package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"hark/pkg/audioconv"
)

// ErrModelUnavailable is returned when the speech model was never
// loaded or failed to load. Not retried.
var ErrModelUnavailable = errors.New("speech model unavailable")

// whisper.cpp operates on mono 16 kHz input only.
const modelRate = 16000

type Options struct {
	Language      string // e.g. "auto", "en", "ru"
	TranslateToEn bool   // if true, translate non-EN -> EN
	Threads       int    // <=0 => NumCPU()
	InitialPrompt string // optional prefix prompt
	BeamSize      int    // 0 = greedy; >0 enables beam search
	MaxTokens     uint   // per segment; 0 = no limit
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

type Transcriber struct {
	model whisper.Model
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("empty model path: %w", ErrModelUnavailable)
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w: %v", modelPath, ErrModelUnavailable, err)
	}
	return &Transcriber{model: m}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

var (
	defaultMu sync.Mutex
	defaultTr *Transcriber
)

// LoadDefault initializes the process-wide transcriber on first call
// and returns the same handle afterwards, whatever path is passed.
func LoadDefault(modelPath string) (*Transcriber, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTr != nil {
		return defaultTr, nil
	}
	tr, err := NewTranscriber(modelPath)
	if err != nil {
		return nil, err
	}
	defaultTr = tr
	return defaultTr, nil
}

// TranscribeRecording writes samples to a temporary WAV artifact and
// transcribes it. Atomic from the caller's view: full text or error.
func (t *Transcriber) TranscribeRecording(ctx context.Context, samples []float32, rate int, opt Options) (Result, error) {
	path, err := audioconv.WriteTempWAV(samples, rate)
	if err != nil {
		return Result{}, fmt.Errorf("write artifact: %w", err)
	}
	return t.TranscribeFile(ctx, path, opt)
}

// TranscribeFile decodes an encoded audio artifact to the model's
// native rate and transcribes it.
func (t *Transcriber) TranscribeFile(ctx context.Context, path string, opt Options) (Result, error) {
	pcm, err := audioconv.DecodeFile(path, modelRate)
	if err != nil {
		return Result{}, fmt.Errorf("read artifact: %w", err)
	}
	return t.TranscribePCM(ctx, pcm, opt)
}

// TranscribePCM runs the model on mono 16 kHz float32 samples.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm []float32, opt Options) (Result, error) {
	if t.model == nil {
		return Result{}, ErrModelUnavailable
	}
	if len(pcm) == 0 {
		return Result{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}

	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.MaxTokens > 0 {
		wctx.SetMaxTokensPerSegment(opt.MaxTokens)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var segs []Segment
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return Result{
		Text:     joinSegments(segs),
		Segments: segs,
		Language: lang,
	}, nil
}

func joinSegments(segs []Segment) string {
	var text string
	for _, s := range segs {
		if text == "" {
			text = s.Text
		} else {
			text += " " + s.Text
		}
	}
	return text
}
