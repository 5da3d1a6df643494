// Command voxa-transcribe turns a raw PCM audio file into text.
//
// Usage:
//
//	voxa-transcribe -in speech.raw
//	voxa-transcribe -config voxa.yaml -in speech.raw -live
//
// With -live the transcript segments are printed as they arrive instead
// of waiting for the full result. The API key comes from the config file
// or VOXA_API_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/voxa-ai/voxa-go/internal/config"
	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
	voxa "github.com/voxa-ai/voxa-go/sdk"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a voxa.yaml config file")
		in         = flag.String("in", "", "input raw PCM audio file")
		live       = flag.Bool("live", false, "print segments as they arrive")
		timeout    = flag.Duration("timeout", 120*time.Second, "overall deadline")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxa-transcribe: %v\n", err)
		os.Exit(1)
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "voxa-transcribe: -in is required")
		os.Exit(1)
	}
	audio, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxa-transcribe: %v\n", err)
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

	req := &voxa.STTStreamRequest{
		Model:      cfg.STT.Model,
		Language:   cfg.STT.Language,
		Encoding:   cfg.STT.Encoding,
		SampleRate: cfg.STT.SampleRate,
	}

	if *live {
		if err := transcribeLive(ctx, client, audio, req); err != nil {
			fmt.Fprintf(os.Stderr, "voxa-transcribe: %v\n", err)
			os.Exit(1)
		}
		return
	}

	text, err := client.STT.Transcribe(ctx, audio, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxa-transcribe: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}

// transcribeLive feeds the file in chunks and prints each segment with
// its start offset as the service emits it.
func transcribeLive(ctx context.Context, client *voxa.Client, audio []byte, req *voxa.STTStreamRequest) error {
	chunks := make(chan []byte)
	go func() {
		defer close(chunks)
		const chunkSize = 4096
		for off := 0; off < len(audio); off += chunkSize {
			end := off + chunkSize
			if end > len(audio) {
				end = len(audio)
			}
			select {
			case chunks <- audio[off:end]:
			case <-ctx.Done():
				return
			}
		}
	}()

	stream, err := client.STT.StreamAudio(ctx, chunks, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	segments := stream.TextSegments()
	for segments.Next(ctx) {
		seg := segments.Message().(protocol.Text)
		fmt.Printf("[%6.2fs] %s\n", seg.StartS, seg.Text)
	}
	return segments.Err()
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
