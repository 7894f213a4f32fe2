package speech_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-empathy/internal/log"
	"github.com/teslashibe/go-empathy/pkg/metrics"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/tier"
	"github.com/teslashibe/go-empathy/pkg/tts"
)

func namedMock(name string) *tts.Mock {
	m := tts.NewMock()
	m.ProviderName = name
	return m
}

func failingMock(name string, err error) *tts.Mock {
	m := tts.WithError(err)
	m.ProviderName = name
	return m
}

func newSynth(providers []tts.Provider, opts ...speech.Option) *speech.Synthesizer {
	opts = append([]speech.Option{speech.WithLogger(log.Discard())}, opts...)
	return speech.New(providers, opts...)
}

func TestSynthesizeFirstProviderWins(t *testing.T) {
	cloud := namedMock("google")
	offline := namedMock("piper")

	s := newSynth([]tts.Provider{cloud, offline})
	res := s.Synthesize(context.Background(), speech.Request{Text: "I'm here with you."})

	assert.Equal(t, "google", res.ProviderUsed)
	assert.False(t, res.IsFallback)
	require.NotNil(t, res.Payload)
	assert.NotEmpty(t, res.Payload.Audio)
	assert.Zero(t, offline.CallCount("Synthesize"))
}

func TestSynthesizeEscalatesToOffline(t *testing.T) {
	cloud := failingMock("google", &tts.APIError{StatusCode: 503, Provider: "google"})
	offline := namedMock("piper")

	s := newSynth([]tts.Provider{cloud, offline})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.Equal(t, "piper", res.ProviderUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tier.OutcomeFailed, res.Attempts[0].Outcome)
}

func TestSynthesizeAllFailReturnsNoAudio(t *testing.T) {
	s := newSynth([]tts.Provider{
		failingMock("google", errors.New("down")),
		failingMock("piper", errors.New("crashed")),
	})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.True(t, res.IsFallback)
	assert.Equal(t, tier.FallbackName, res.ProviderUsed)
	assert.Nil(t, res.Payload)
}

func TestSynthesizeEmptyTextSkipsProviders(t *testing.T) {
	cloud := namedMock("google")
	collector := metrics.NewCollector()

	s := newSynth([]tts.Provider{cloud}, speech.WithObserver(collector))
	res := s.Synthesize(context.Background(), speech.Request{Text: "  \n"})

	assert.True(t, res.IsFallback)
	assert.Equal(t, tier.FallbackName, res.ProviderUsed)
	assert.Nil(t, res.Payload)
	assert.Empty(t, res.Attempts)
	assert.Zero(t, cloud.CallCount("Synthesize"))
	assert.Equal(t, 1, collector.Fallbacks(speech.ChainName))
}

func TestSynthesizeEmptyAudioEscalates(t *testing.T) {
	empty := namedMock("google")
	empty.SynthesizeFunc = func(ctx context.Context, req *tts.SynthesisRequest) (*tts.AudioResult, error) {
		return &tts.AudioResult{}, nil
	}

	s := newSynth([]tts.Provider{empty, namedMock("piper")})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.Equal(t, "piper", res.ProviderUsed)
	assert.ErrorIs(t, res.Attempts[0].Err, tts.ErrEmptyAudio)
}

func TestSynthesizeSkipsUnconfigured(t *testing.T) {
	cloud := namedMock("google")
	cloud.Unconfigured = true
	offline := namedMock("piper")

	s := newSynth([]tts.Provider{cloud, offline})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.Equal(t, "piper", res.ProviderUsed)
	assert.Zero(t, cloud.CallCount("Synthesize"))
	assert.Equal(t, tier.OutcomeSkipped, res.Attempts[0].Outcome)
}

func TestPlaceholderKeyMakesNoCloudCalls(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	cloud, err := tts.NewGoogle(context.Background(),
		tts.WithAPIKey("YOUR_API_KEY_HERE"),
		tts.WithEndpoint(server.URL+"/"),
		tts.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	offline := namedMock("piper")

	s := newSynth([]tts.Provider{cloud, offline})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.Zero(t, requests.Load())
	assert.Equal(t, 1, offline.CallCount("Synthesize"))
	assert.Equal(t, "piper", res.ProviderUsed)
}

func TestOfflineNonZeroExitFallsBackAndCleansUp(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_file" ]; then out="$2"; shift; fi
  shift
done
cat > /dev/null
echo partial > "$out"
exit 3
`
	bin := filepath.Join(t.TempDir(), "piper")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	tmp := t.TempDir()

	cloud, err := tts.NewGoogle(context.Background(), tts.WithAPIKey(""), tts.WithLogger(log.Discard()))
	require.NoError(t, err)
	offline := tts.NewPiper(&tts.ExecRunner{Path: bin, TempDir: tmp}, tts.WithLogger(log.Discard()))

	s := newSynth([]tts.Provider{cloud, offline})
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.True(t, res.IsFallback)
	assert.Nil(t, res.Payload)
	require.Len(t, res.Attempts, 2)
	var pe *tts.ProcessError
	assert.ErrorAs(t, res.Attempts[1].Err, &pe)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTierTimeout(t *testing.T) {
	slow := tts.WithLatency(namedMock("google"), time.Second)
	offline := namedMock("piper")

	s := newSynth([]tts.Provider{slow, offline}, speech.WithTierTimeout("google", 20*time.Millisecond))
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})

	assert.Equal(t, "piper", res.ProviderUsed)
	assert.Equal(t, tier.OutcomeTimeout, res.Attempts[0].Outcome)
}

func TestProvidersAndClose(t *testing.T) {
	closeErr := errors.New("close failed")
	a := namedMock("google")
	a.CloseFunc = func() error { return closeErr }
	b := namedMock("piper")

	s := newSynth([]tts.Provider{a, nil, b})
	assert.Equal(t, []string{"google", "piper"}, s.Providers())
	assert.ErrorIs(t, s.Close(), closeErr)
	assert.Equal(t, 1, b.CallCount("Close"))
}

func TestNoProviders(t *testing.T) {
	s := newSynth(nil)
	res := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	assert.True(t, res.IsFallback)
	assert.Empty(t, res.Attempts)
}
