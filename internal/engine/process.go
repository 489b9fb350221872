package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

// CLI flags of the inference binary. Both backend CLIs share this contract:
// a --warmup invocation loads the model and exits, and a synthesis invocation
// writes a 16-bit PCM WAV file to --output.
const (
	flagModel        = "--model"
	flagDevice       = "--device"
	flagOutput       = "--output"
	flagReference    = "--reference"
	flagExaggeration = "--exaggeration"
	flagCFGWeight    = "--cfg-weight"
	flagSpeed        = "--speed"
	flagText         = "--text"
	flagWarmup       = "--warmup"
)

const (
	floatArgPrecision = 'f'
	floatArgDigits    = 2
	floatArgBits      = 64
)

const tempOutputPattern = "speech-output"

// Static errors.
var (
	ErrBinaryNotFound = errors.New("inference binary not found")
	ErrEmptyWaveform  = errors.New("engine produced no audio")
)

// Options configures a ProcessEngine.
type Options struct {
	// BinaryPath is the inference CLI, resolved against PATH during Load
	// if not absolute.
	BinaryPath string

	// Model is the backend-specific model identifier.
	Model string

	// Device is the resolved execution device passed to the CLI.
	Device string

	// SampleRate is the expected output rate, reported on /health before
	// the first synthesis.
	SampleRate int
}

// ProcessEngine implements core.Engine by invoking an external inference CLI
// per request. The CLI loads its model once and keeps it resident; Load runs
// a warmup invocation so the first synthesis request does not pay the model
// load cost.
type ProcessEngine struct {
	opts Options
	log  *logger.Logger

	mu       sync.Mutex
	resolved string
}

// New creates a process-backed engine. No filesystem access happens until
// Load is called.
func New(opts Options, log *logger.Logger) *ProcessEngine {
	return &ProcessEngine{
		opts:     opts,
		log:      log,
		resolved: "",
	}
}

// Load resolves the inference binary and runs a warmup invocation that loads
// the model. A failure leaves the engine unloaded; the lifecycle manager may
// retry on a later request.
func (e *ProcessEngine) Load(ctx context.Context) error {
	path, lookErr := exec.LookPath(e.opts.BinaryPath)
	if lookErr != nil {
		return fmt.Errorf("%w: %q: %w", ErrBinaryNotFound, e.opts.BinaryPath, lookErr)
	}

	args := []string{
		flagWarmup,
		flagModel, e.opts.Model,
		flagDevice, e.opts.Device,
	}

	// #nosec G204 -- binary path comes from exec.LookPath, arguments are
	// configuration values validated at startup.
	cmd := exec.CommandContext(ctx, path, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return fmt.Errorf(
			"model warmup failed: %w - output: %s",
			runErr, string(output),
		)
	}

	e.mu.Lock()
	e.resolved = path
	e.mu.Unlock()

	e.log.Info("Engine warmup complete: %s (model=%s, device=%s)",
		path, e.opts.Model, e.opts.Device)

	return nil
}

// Synthesize runs one inference invocation and parses the resulting WAV file
// into a waveform. Engine failures preserve the CLI output for diagnostics.
func (e *ProcessEngine) Synthesize(
	ctx context.Context,
	job core.SynthesisJob,
) (*core.Waveform, error) {
	binary := e.binaryPath()
	if binary == "" {
		return nil, ErrBinaryNotFound
	}

	outputPath := filepath.Join(
		os.TempDir(),
		tempOutputPattern+"-"+uuid.NewString()+audio.ExtWAV,
	)

	defer func() {
		_ = os.Remove(outputPath)
	}()

	args := buildSynthesisArgs(e.opts, job, outputPath)

	// #nosec G204 -- binary path comes from exec.LookPath, the text
	// argument is passed as a single argv entry and never interpreted by
	// a shell.
	cmd := exec.CommandContext(ctx, binary, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return nil, fmt.Errorf(
			"engine execution failed: %w - output: %s",
			runErr, string(output),
		)
	}

	wavData, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read engine output: %w", readErr)
	}

	waveform, decodeErr := audio.DecodeWAV(wavData)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode engine output: %w", decodeErr)
	}

	if len(waveform.Samples) == 0 {
		return nil, ErrEmptyWaveform
	}

	return waveform, nil
}

// ModelName reports the configured model identifier.
func (e *ProcessEngine) ModelName() string {
	return e.opts.Model
}

// SampleRate reports the engine's expected output rate.
func (e *ProcessEngine) SampleRate() int {
	return e.opts.SampleRate
}

func (e *ProcessEngine) binaryPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.resolved
}

// buildSynthesisArgs assembles the CLI argument list for one invocation.
func buildSynthesisArgs(opts Options, job core.SynthesisJob, outputPath string) []string {
	args := []string{
		flagModel, opts.Model,
		flagDevice, opts.Device,
		flagOutput, outputPath,
		flagExaggeration, formatFloatArg(job.Exaggeration),
		flagCFGWeight, formatFloatArg(job.CFGWeight),
		flagSpeed, formatFloatArg(job.Speed),
	}

	if job.ReferencePath != "" {
		args = append(args, flagReference, job.ReferencePath)
	}

	args = append(args, flagText, job.Text)

	return args
}

func formatFloatArg(value float64) string {
	return strconv.FormatFloat(value, floatArgPrecision, floatArgDigits, floatArgBits)
}
