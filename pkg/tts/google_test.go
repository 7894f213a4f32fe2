package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-empathy/pkg/tts"
)

func newGoogleServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestGoogleSynthesize(t *testing.T) {
	var body map[string]any
	server := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("ID3mp3")),
		})
	})

	g, err := tts.NewGoogle(context.Background(),
		tts.WithAPIKey("test-key"),
		tts.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)
	require.True(t, g.Configured())

	result, err := g.Synthesize(context.Background(), &tts.SynthesisRequest{
		Text:     "one two three four five",
		Language: "en-GB",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("ID3mp3"), result.Audio)
	assert.Equal(t, "google", result.Provider)
	assert.Equal(t, 2.0, result.EstimatedDuration)
	assert.Equal(t, tts.EncodingMP3, result.Format.Encoding)

	voice := body["voice"].(map[string]any)
	assert.Equal(t, "en-GB", voice["languageCode"])
	assert.Equal(t, "en-GB-Neural2-A", voice["name"])
	audioConfig := body["audioConfig"].(map[string]any)
	assert.Equal(t, "MP3", audioConfig["audioEncoding"])
}

func TestGoogleAPIErrorIsMapped(t *testing.T) {
	server := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","errors":[{"reason":"forbidden"}]}}`))
	})

	g, err := tts.NewGoogle(context.Background(),
		tts.WithAPIKey("bad-key"),
		tts.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)

	_, err = g.Synthesize(context.Background(), &tts.SynthesisRequest{Text: "hello"})
	var apiErr *tts.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.True(t, apiErr.Fatal())
}

func TestGooglePlaceholderKeyMakesNoRequest(t *testing.T) {
	requests := 0
	server := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	for _, key := range []string{"", "YOUR_API_KEY_HERE", "your-google-api-key"} {
		g, err := tts.NewGoogle(context.Background(),
			tts.WithAPIKey(key),
			tts.WithEndpoint(server.URL+"/"),
		)
		require.NoError(t, err)
		assert.False(t, g.Configured(), "key %q", key)

		_, err = g.Synthesize(context.Background(), &tts.SynthesisRequest{Text: "hello"})
		assert.True(t, errors.Is(err, tts.ErrNoAPIKey))
	}
	assert.Zero(t, requests)
}

func TestGoogleMissingCredentialsFile(t *testing.T) {
	_, err := tts.NewGoogle(context.Background(), tts.WithCredentialsFile(t.TempDir()+"/missing.json"))
	assert.Error(t, err)
}
