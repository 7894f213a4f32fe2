package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

const providerPolly = "polly"

// pollyClientErrors are Polly error codes caused by the request itself.
var pollyClientErrors = map[string]bool{
	"InvalidSsmlException":                      true,
	"TextLengthExceededException":               true,
	"LexiconNotFoundException":                  true,
	"MarksNotSupportedForFormatException":       true,
	"InvalidSampleRateException":                true,
	"EngineNotSupportedException":               true,
	"LanguageNotSupportedException":             true,
	"SsmlMarksNotSupportedForTextTypeException": true,
	"UnrecognizedClientException":               true,
	"AccessDeniedException":                     true,
	"InvalidSignatureException":                 true,
}

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly implements Provider for Amazon Polly. The AWS client is created on
// first use from the default credential chain.
type Polly struct {
	mu     sync.Mutex
	client synthClient
	config *Config
	logger *slog.Logger
}

// NewPolly creates a Polly provider.
func NewPolly(opts ...Option) *Polly {
	cfg := DefaultConfig()
	cfg.Region = "us-east-1"
	cfg.Voice = "Joanna"
	cfg.Engine = "neural"
	cfg.SampleRate = 22050
	cfg.Apply(opts...)

	return &Polly{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.polly"),
	}
}

// Name returns "polly".
func (p *Polly) Name() string { return providerPolly }

// Synthesize converts text to MP3 audio.
func (p *Polly) Synthesize(ctx context.Context, req *SynthesisRequest) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerPolly, ErrEmptyText)
	}

	client, err := p.resolveClient(ctx)
	if err != nil {
		return nil, WrapError(providerPolly, err)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	voice := p.config.Voice
	if req.Voice != "" && !strings.Contains(req.Voice, "-") {
		// Google-style names like en-US-Neural2-F are not Polly voices.
		voice = req.Voice
	}

	engine := pollytypes.EngineStandard
	switch strings.ToLower(p.config.Engine) {
	case "neural":
		engine = pollytypes.EngineNeural
	case "generative":
		engine = pollytypes.EngineGenerative
	}

	input := &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		SampleRate:   aws.String(strconv.Itoa(p.config.SampleRate)),
		Text:         aws.String(req.Text),
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(voice),
	}
	if req.Language != "" {
		input.LanguageCode = pollytypes.LanguageCode(req.Language)
	}

	output, err := client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, mapPollyError(err)
	}
	if output == nil || output.AudioStream == nil {
		return nil, WrapError(providerPolly, ErrEmptyAudio)
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return nil, WrapError(providerPolly, fmt.Errorf("read audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerPolly, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()
	p.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voice,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   EncodingMP3,
			SampleRate: p.config.SampleRate,
			Channels:   1,
		},
		EstimatedDuration: EstimateDuration(req.Text),
		CharCount:         len(req.Text),
		LatencyMs:         latency,
		Provider:          providerPolly,
	}, nil
}

// Close releases resources.
func (p *Polly) Close() error {
	return nil
}

func (p *Polly) resolveClient(ctx context.Context) (synthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.config.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.client = polly.NewFromConfig(awsCfg)
	return p.client, nil
}

func mapPollyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return &APIError{
			Message:   apiErr.ErrorMessage(),
			Code:      code,
			Provider:  providerPolly,
			Permanent: pollyClientErrors[code],
		}
	}
	return WrapError(providerPolly, err)
}

// Verify Polly implements Provider at compile time.
var _ Provider = (*Polly)(nil)
