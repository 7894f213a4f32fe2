package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const providerPiper = "piper"

// maxStderr caps how much process stderr is kept for error messages.
const maxStderr = 4 << 10

// Runner runs an external synthesizer once: input is written to the
// process, and the produced audio bytes are returned.
type Runner interface {
	Run(ctx context.Context, input []byte) ([]byte, error)
}

// ExecRunner runs a synthesizer executable that reads text on stdin and
// writes audio to the file named after OutputFlag.
type ExecRunner struct {
	// Path is the executable.
	Path string

	// Args are passed before the output flag.
	Args []string

	// OutputFlag names the output-path flag. Default "--output_file".
	OutputFlag string

	// TempDir holds the output artifact. Empty means os.TempDir().
	TempDir string
}

// Run executes the synthesizer. The output file is removed on every path;
// removal errors are ignored.
func (r *ExecRunner) Run(ctx context.Context, input []byte) ([]byte, error) {
	if r.Path == "" {
		return nil, &ProcessError{Path: r.Path, ExitCode: -1, Err: ErrProviderUnavailable}
	}

	f, err := os.CreateTemp(r.TempDir, "piper-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	outPath := f.Name()
	f.Close()
	defer os.Remove(outPath)

	flag := r.OutputFlag
	if flag == "" {
		flag = "--output_file"
	}
	args := append(append([]string{}, r.Args...), flag, outPath)

	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Stdin = bytes.NewReader(input)
	stderr := &capBuffer{max: maxStderr}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ProcessError{
			Path:     r.Path,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	audio, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read output file: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}

// PiperArgs builds the argument list for the piper executable.
func PiperArgs(modelPath, configPath string, speaker int, lengthScale float64) []string {
	args := []string{"--model", modelPath}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(speaker))
	}
	if lengthScale > 0 && lengthScale != 1 {
		args = append(args, "--length_scale", strconv.FormatFloat(lengthScale, 'f', -1, 64))
	}
	return args
}

// Piper implements Provider with an offline synthesizer process.
// It supports the single language of its voice model; other requested
// languages are logged and synthesized with the default voice anyway.
type Piper struct {
	runner Runner
	config *Config
	logger *slog.Logger
}

// NewPiper creates an offline provider around runner.
func NewPiper(runner Runner, opts ...Option) *Piper {
	cfg := DefaultConfig()
	cfg.Encoding = EncodingWAV
	cfg.SampleRate = 22050
	cfg.Timeout = 30 * time.Second
	cfg.Apply(opts...)

	return &Piper{
		runner: runner,
		config: cfg,
		logger: cfg.Logger.With("component", "tts.piper"),
	}
}

// Name returns "piper".
func (p *Piper) Name() string { return providerPiper }

// Configured reports whether a runner is set.
func (p *Piper) Configured() bool { return p.runner != nil }

// Synthesize runs the offline synthesizer.
func (p *Piper) Synthesize(ctx context.Context, req *SynthesisRequest) (*AudioResult, error) {
	if p.runner == nil {
		return nil, WrapError(providerPiper, ErrProviderUnavailable)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerPiper, ErrEmptyText)
	}

	if req.Language != "" && !SameLanguage(req.Language, p.config.Language) {
		p.logger.Info("requested language not available offline, using default voice",
			"requested", req.Language,
			"voice_language", p.config.Language,
		)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := p.runner.Run(ctx, []byte(req.Text+"\n"))
	if err != nil {
		return nil, WrapError(providerPiper, err)
	}

	latency := time.Since(start).Milliseconds()
	p.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   p.config.Encoding,
			SampleRate: p.config.SampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		EstimatedDuration: EstimateDuration(req.Text),
		CharCount:         len(req.Text),
		LatencyMs:         latency,
		Provider:          providerPiper,
	}, nil
}

// Close releases resources.
func (p *Piper) Close() error {
	return nil
}

// capBuffer keeps the first max bytes written to it.
type capBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *capBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *capBuffer) String() string {
	return b.buf.String()
}

// Verify Piper implements Provider at compile time.
var (
	_ Provider     = (*Piper)(nil)
	_ Configurable = (*Piper)(nil)
	_ Runner       = (*ExecRunner)(nil)
)
