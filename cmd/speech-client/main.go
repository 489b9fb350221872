// main package for the speech-client command-line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/book-expert/speech-gateway/internal/client"
)

// Flag names.
const (
	flagText   = "text"
	flagOutput = "output"
	flagVoice  = "voice"
	flagURL    = "url"
	flagHealth = "health"
	flagVoices = "voices"
)

// Flag descriptions.
const (
	flagTextDesc   = "Text to convert to speech"
	flagOutputDesc = "Output file path (.wav)"
	flagVoiceDesc  = "Voice asset ID (empty uses the default voice)"
	flagURLDesc    = "Base URL of the speech gateway"
	flagHealthDesc = "Check gateway health and exit"
	flagVoicesDesc = "List available voices and exit"
)

// Defaults.
const (
	defaultGatewayURL = "http://127.0.0.1:5553"
	defaultOutputFile = "output.wav"
	requestTimeout    = 5 * time.Minute
	filePermissions   = 0o600
)

var errTextRequired = errors.New("--text must be provided")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text   string
	output string
	voice  string
	url    string
	health bool
	voices bool
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	gateway := client.New(flags.url, requestTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case flags.health:
		return checkHealth(ctx, gateway)
	case flags.voices:
		return listVoices(ctx, gateway)
	default:
		return synthesize(ctx, gateway, flags)
	}
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.url, flagURL, defaultGatewayURL, flagURLDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.BoolVar(&flags.voices, flagVoices, false, flagVoicesDesc)
	flag.Parse()

	return flags
}

func checkHealth(ctx context.Context, gateway *client.Client) error {
	err := gateway.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("gateway is not healthy: %w", err)
	}

	fmt.Println("Gateway is healthy")

	return nil
}

func listVoices(ctx context.Context, gateway *client.Client) error {
	voices, err := gateway.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	for _, voice := range voices {
		fmt.Println(voice)
	}

	return nil
}

func synthesize(ctx context.Context, gateway *client.Client, flags appFlags) error {
	if flags.text == "" {
		return errTextRequired
	}

	audioData, err := gateway.Synthesize(ctx, client.SynthesisRequest{
		Input: flags.text,
		Voice: flags.voice,
	})
	if err != nil {
		return fmt.Errorf("failed to synthesize: %w", err)
	}

	writeErr := os.WriteFile(flags.output, audioData, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	fmt.Printf("Generated: %s (%d bytes)\n", flags.output, len(audioData))

	return nil
}
