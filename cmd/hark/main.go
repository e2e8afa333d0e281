package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"hark/internal/audio"
	"hark/internal/nlu"
	"hark/internal/proxy"
	"hark/pkg/stt"
)

// One-shot mode: capture (or read a file), transcribe, translate,
// print the structured command as JSON on stdout.
func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address (empty = direct)")
	modelPath := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	duration := cli.DurationP("duration", "d", 5*time.Second, "Capture window")
	rate := cli.Int("rate", 16000, "Capture sample rate, Hz")
	channels := cli.Int("channels", 1, "Capture channels")
	lang := cli.String("lang", "auto", "Transcription language hint")
	file := cli.StringP("file", "f", "", "Transcribe this audio file instead of the mic")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: log.LevelWarn,
	})))

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "OPENAI_API_KEY not set")
		os.Exit(1)
	}

	httpClient := http.DefaultClient
	if *proxyAddr != "" {
		var err error
		httpClient, err = proxy.NewSocksClient(*proxyAddr, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, "socks proxy:", err)
			os.Exit(1)
		}
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)

	whisper, err := stt.LoadDefault(*modelPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "whisper:", err)
		os.Exit(1)
	}
	defer whisper.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	var res stt.Result
	if *file != "" {
		res, err = whisper.TranscribeFile(ctx, *file, stt.Options{Language: *lang})
	} else {
		if err := audio.Init(); err != nil {
			fmt.Fprintln(os.Stderr, "audio:", err)
			os.Exit(1)
		}
		defer audio.Terminate()

		var rec audio.Recording
		rec, err = audio.NewSession(audio.SessionConfig{
			Duration:   *duration,
			SampleRate: *rate,
			Channels:   *channels,
			FrameSize:  1024,
		}).Capture()
		if err == nil {
			res, err = whisper.TranscribeRecording(ctx, rec.Samples, rec.SampleRate, stt.Options{Language: *lang})
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "transcribe:", err)
		os.Exit(1)
	}

	cmd, err := nlu.Translate(ctx, client, res.Text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "translate:", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(cmd, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
