package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-empathy/internal/app"
	"github.com/teslashibe/go-empathy/internal/config"
	"github.com/teslashibe/go-empathy/internal/log"
	"github.com/teslashibe/go-empathy/pkg/emotions"
	"github.com/teslashibe/go-empathy/pkg/respond"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
	"github.com/teslashibe/go-empathy/pkg/tier"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "empath.db")
	return cfg
}

func TestBuildWithNothingConfigured(t *testing.T) {
	a, err := app.Build(context.Background(), testConfig(t), log.Discard())
	require.NoError(t, err)
	defer a.Close()

	res := a.Responder.Respond(context.Background(), respond.Request{Emotion: "sad"})
	assert.True(t, res.IsFallback)
	assert.Equal(t, emotions.Default().Fallback("sad"), res.Payload.Text)

	sp := a.Speech.Synthesize(context.Background(), speech.Request{Text: res.Payload.Text})
	assert.True(t, sp.IsFallback)
	assert.Nil(t, sp.Payload)
	assert.Equal(t, []string{"google", "piper"}, a.Speech.Providers())
	for _, at := range sp.Attempts {
		assert.Equal(t, tier.OutcomeSkipped, at.Outcome)
	}

	require.NotNil(t, a.Store)
	assert.Equal(t, 1, a.Metrics.Fallbacks(respond.ChainName))
}

func TestBuildUsesGemini(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "I'm glad you told me."}}},
			}},
		})
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.LLM.Primary.APIKey = "test-key"
	cfg.LLM.Primary.BaseURL = server.URL

	a, err := app.Build(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer a.Close()

	res := a.Responder.Respond(context.Background(), respond.Request{Emotion: "happy", Confidence: 0.9})
	assert.Equal(t, "gemini", res.ProviderUsed)
	assert.Equal(t, "I'm glad you told me.", res.Payload.Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSecondaryWithoutKeyStaysDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Secondary.Enabled = true
	cfg.LLM.Secondary.APIKey = "changeme"

	a, err := app.Build(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer a.Close()

	res := a.Responder.Respond(context.Background(), respond.Request{Emotion: "fear"})
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, respond.TierSecondary, res.Attempts[1].Tier)
	assert.Equal(t, tier.OutcomeFailed, res.Attempts[1].Outcome)
}

func TestStorageDisabledAndUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = false
	a, err := app.Build(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	a.Close()

	cfg = testConfig(t)
	cfg.Storage.Path = filepath.Join(t.TempDir(), "db-is-a-dir")
	require.NoError(t, mkdir(cfg.Storage.Path))
	a, err = app.Build(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Store)
}

func TestServerEndToEnd(t *testing.T) {
	a, err := app.Build(context.Background(), testConfig(t), log.Discard())
	require.NoError(t, err)
	defer a.Close()

	srv := a.Server("test")
	req := httptest.NewRequest(http.MethodPost, "/api/respond", strings.NewReader(`{"user_id":"u1","emotion":"angry"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	records, err := a.Store.Query(context.Background(), store.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsFallback)
}

func mkdir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func TestBuildLoadsProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`profiles:
  - emotion: sad
    guidance: "Be gentle."
    fallback: "Take all the time you need."
`), 0o644))

	cfg := testConfig(t)
	cfg.Profiles = path

	a, err := app.Build(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer a.Close()

	res := a.Responder.Respond(context.Background(), respond.Request{Emotion: "sad"})
	assert.Equal(t, "Take all the time you need.", res.Payload.Text)

	cfg.Profiles = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = app.Build(context.Background(), cfg, log.Discard())
	assert.Error(t, err)
}
