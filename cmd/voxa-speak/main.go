// Command voxa-speak synthesizes speech for a piece of text and writes
// the audio to a file.
//
// Usage:
//
//	voxa-speak -voice nova -out hello.raw "Hello there"
//	echo "Hello there" | voxa-speak -voice nova -out hello.raw
//
// The API key comes from the config file or VOXA_API_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/voxa-ai/voxa-go/internal/config"
	voxa "github.com/voxa-ai/voxa-go/sdk"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a voxa.yaml config file")
		voice      = flag.String("voice", "", "voice id (overrides config)")
		out        = flag.String("out", "out.raw", "output audio file")
		format     = flag.String("format", "", "output container: raw, wav or mp3 (overrides config)")
		timeout    = flag.Duration("timeout", 60*time.Second, "overall deadline")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxa-speak: %v\n", err)
		os.Exit(1)
	}
	if *voice != "" {
		cfg.TTS.Voice = *voice
	}
	if *format != "" {
		cfg.TTS.Format = *format
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voxa-speak: read stdin: %v\n", err)
			os.Exit(1)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "voxa-speak: no text given (argument or stdin)")
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	client := voxa.NewClient(
		voxa.WithBaseURL(cfg.BaseURL),
		voxa.WithAPIKey(cfg.APIKey),
		voxa.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	audio, err := client.TTS.Synthesize(ctx, text, &voxa.TTSStreamRequest{
		ModelID:    cfg.TTS.ModelID,
		Voice:      cfg.TTS.Voice,
		Language:   cfg.TTS.Language,
		Format:     cfg.TTS.Format,
		SampleRate: cfg.TTS.SampleRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxa-speak: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, audio, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "voxa-speak: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(audio), *out)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
