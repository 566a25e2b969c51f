package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rbright/askit/internal/capability"
	appconfig "github.com/rbright/askit/internal/config"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path        string
	ContentType string
	Body        []byte
}

func newServer(t *testing.T, handler http.HandlerFunc) (*Provider, func() []recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{Path: r.URL.Path, ContentType: r.Header.Get("Content-Type"), Body: body})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	provider, err := New("sk-test", WithBaseURL(server.URL+"/v1/"), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return provider, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestTranscribeSendsMultipartUpload(t *testing.T) {
	provider, requests := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"bijli ka bill"}`)
	})

	text, err := provider.Transcribe(context.Background(), capability.TranscribeRequest{
		Audio:       []byte("RIFFdata"),
		FileName:    "recording.wav",
		MIMEType:    "audio/wav",
		Model:       "whisper-1",
		Temperature: 0.2,
	})
	require.NoError(t, err)
	require.Equal(t, "bijli ka bill", text)

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, "/v1/audio/transcriptions", got[0].Path)
	require.True(t, strings.HasPrefix(got[0].ContentType, "multipart/form-data"))
	require.Contains(t, string(got[0].Body), "whisper-1")
	require.Contains(t, string(got[0].Body), `filename="recording.wav"`)
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	provider, requests := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"intent\":\"tax_services\"}"}}]
		}`)
	})

	content, err := provider.Complete(context.Background(), capability.CompletionRequest{
		Model:       "gpt-4",
		System:      "system prompt",
		User:        "tax bharna hai",
		Temperature: 0.3,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	require.Equal(t, `{"intent":"tax_services"}`, content)

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, "/v1/chat/completions", got[0].Path)

	var body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(got[0].Body, &body))
	require.Equal(t, "gpt-4", body.Model)
	require.InDelta(t, 0.3, body.Temperature, 1e-9)
	require.Equal(t, 500, body.MaxTokens)
	require.Len(t, body.Messages, 2)
	require.Equal(t, "system", body.Messages[0].Role)
	require.Equal(t, "user", body.Messages[1].Role)
	require.Equal(t, "tax bharna hai", body.Messages[1].Content)
}

func TestCompleteWithoutChoicesReturnsEmpty(t *testing.T) {
	provider, _ := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4","choices":[]}`)
	})

	content, err := provider.Complete(context.Background(), capability.CompletionRequest{Model: "gpt-4"})
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestSynthesizeReturnsBody(t *testing.T) {
	provider, requests := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x01, 0x02, 0x03, 0x04})
	})

	data, err := provider.Synthesize(context.Background(), capability.SpeechRequest{
		Model:  "tts-1",
		Voice:  "nova",
		Input:  "namaste",
		Format: "pcm",
		Speed:  0.9,
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, "/v1/audio/speech", got[0].Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got[0].Body, &body))
	require.Equal(t, "nova", body["voice"])
	require.Equal(t, "pcm", body["response_format"])
	require.InDelta(t, 0.9, body["speed"], 1e-9)
}

func TestAPIErrorsCarryStatusCode(t *testing.T) {
	provider, requests := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	})

	_, err := provider.Complete(context.Background(), capability.CompletionRequest{Model: "gpt-4"})
	require.Error(t, err)

	var perr *capability.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Len(t, requests(), 1, "retries must be disabled by default")
}

func TestPingResolvesModel(t *testing.T) {
	provider, requests := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"gpt-4","object":"model","created":1,"owned_by":"openai"}`)
	})

	require.NoError(t, provider.Ping(context.Background(), "gpt-4"))
	require.Equal(t, "/v1/models/gpt-4", requests()[0].Path)
}

func TestTransportErrorsHaveNoStatus(t *testing.T) {
	provider, err := New("sk-test", WithBaseURL("http://127.0.0.1:1/v1/"))
	require.NoError(t, err)

	_, err = provider.Transcribe(context.Background(), capability.TranscribeRequest{Audio: []byte("x"), FileName: "a.wav", Model: "whisper-1"})
	var perr *capability.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Zero(t, perr.StatusCode)
}

func TestFromConfigRequiresKey(t *testing.T) {
	t.Setenv("ASKIT_TEST_KEY", "")
	_, err := FromConfig(appconfig.OpenAIConfig{APIKeyEnv: "ASKIT_TEST_KEY"})
	require.ErrorIs(t, err, ErrMissingKey)
	require.Contains(t, err.Error(), "ASKIT_TEST_KEY")
}

func TestFromConfigUsesBaseURL(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"whisper-1","object":"model","created":0,"owned_by":"openai"}`))
	}))
	defer server.Close()

	t.Setenv("ASKIT_TEST_KEY", "sk-test")
	p, err := FromConfig(appconfig.OpenAIConfig{
		APIKeyEnv: "ASKIT_TEST_KEY",
		BaseURL:   server.URL + "/v1/",
		TimeoutMS: 2000,
	})
	require.NoError(t, err)
	require.NoError(t, p.Ping(context.Background(), "whisper-1"))
	require.Equal(t, "/v1/models/whisper-1", gotPath)
	require.Equal(t, "Bearer sk-test", gotAuth)
}
