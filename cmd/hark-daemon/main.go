package main

import (
	"context"
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
	"hark/internal/ipc"
	"hark/internal/nlu"
	"hark/internal/notify"
	"hark/internal/proxy"
	"hark/pkg/protocol"
	"hark/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address (empty = direct)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	modelPath := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-medium.bin", "Whisper model path")
	duration := cli.DurationP("duration", "d", 5*time.Second, "Capture window")
	rate := cli.Int("rate", 16000, "Capture sample rate, Hz")
	channels := cli.Int("channels", 1, "Capture channels")
	frameSize := cli.Int("frame", 1024, "Samples per driver callback")
	lang := cli.String("lang", "auto", "Transcription language hint")
	hubURL := cli.String("hub", "", "Robot hub websocket url (empty = log only)")
	cuePath := cli.String("cue", "", "Capture cue mp3 (empty = silent)")
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	log.Debug("Loaded API Key")

	httpClient := http.DefaultClient
	if *proxyAddr != "" {
		var err error
		httpClient, err = proxy.NewSocksClient(*proxyAddr, 0)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)

	if err := audio.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer audio.Terminate()

	log.Debug("Loaded audio host")

	whisper, err := stt.LoadDefault(*modelPath)
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	var hub *protocol.Protocol
	if *hubURL != "" {
		hub, err = protocol.NewProtocol(protocol.Config{
			Shard:  "HARK",
			URL:    *hubURL,
			Reconn: 2,
		})
		if err != nil {
			log.Error("Failed to connect hub", "url", *hubURL, "err", err)
			os.Exit(1)
		}
		go hub.Run()
		log.Debug("Connected hub", "url", *hubURL)
	}

	d := &daemon{
		session: audio.SessionConfig{
			Duration:   *duration,
			SampleRate: *rate,
			Channels:   *channels,
			FrameSize:  *frameSize,
		},
		whisper: whisper,
		client:  client,
		hub:     hub,
		ducker:  audio.NewDucker([]string{"hark"}, 20),
		lang:    *lang,
		cuePath: *cuePath,
	}

	if err := ipc.StartServer(*socket, func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case "capture":
			d.handleCapture(msg)
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	select {}
}

type daemon struct {
	session audio.SessionConfig
	whisper *stt.Transcriber
	client  openai.Client
	hub     *protocol.Protocol
	ducker  *audio.Ducker
	lang    string
	cuePath string
}

func (d *daemon) handleCapture(msg ipc.ControlMessage) {
	cfg := d.session
	if msg.Duration > 0 {
		cfg.Duration = time.Duration(msg.Duration * float64(time.Second))
	}

	if d.cuePath != "" {
		if err := notify.Beep(d.cuePath); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	if err := d.ducker.Duck(ctx, 0.3, 200*time.Millisecond); err != nil {
		log.Warn("Failed to duck playback", "err", err)
	}

	log.Info("Listening", "window", cfg.Duration)

	rec, err := audio.NewSession(cfg).Capture()

	if derr := d.ducker.Unduck(ctx, 200*time.Millisecond); derr != nil {
		log.Warn("Failed to restore playback", "err", derr)
	}

	if err != nil {
		log.Error("Failed to capture", "err", err)
		return
	}

	log.Info("Captured", "samples", len(rec.Samples), "seconds", rec.Seconds())

	res, err := d.whisper.TranscribeRecording(ctx, rec.Samples, rec.SampleRate, stt.Options{
		Language: d.lang,
	})
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return
	}

	log.Info("Transcribed", "text", res.Text)

	cmd, err := nlu.Translate(ctx, d.client, res.Text)
	if err != nil {
		log.Error("Failed to translate", "err", err)
		return
	}

	log.Info("──────── HARK ────────")
	log.Info("command:", "name", cmd.Name)
	if len(cmd.Args) > 0 {
		log.Info("args:   ", "args", cmd.Args)
	}
	log.Info("query:  ", "text", cmd.Query)
	log.Info("──────────────────────")

	if d.hub == nil {
		return
	}

	reply, err := nlu.Dispatch(cmd, d.hub)
	if err != nil {
		log.Error("Failed to dispatch", "err", err)
		return
	}
	log.Info("Robot replied", "msg", reply)
}
