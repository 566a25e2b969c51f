// Package openai implements capability.Provider on the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/rbright/askit/internal/capability"
)

// Provider implements capability.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
}

type config struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxRetries sets SDK-level retries. Zero means one attempt per call.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient injects the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// New constructs a Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...)}, nil
}

// Transcribe implements capability.Provider.
func (p *Provider) Transcribe(ctx context.Context, req capability.TranscribeRequest) (string, error) {
	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(bytes.NewReader(req.Audio), req.FileName, req.MIMEType),
		Model:          oai.AudioModel(req.Model),
		ResponseFormat: oai.AudioResponseFormatJSON,
		Temperature:    param.NewOpt(req.Temperature),
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", wrap("transcription", err)
	}
	return resp.Text, nil
}

// Complete implements capability.Provider.
func (p *Provider) Complete(ctx context.Context, req capability.CompletionRequest) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(req.System),
			oai.UserMessage(req.User),
		},
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrap("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize implements capability.Provider.
func (p *Provider) Synthesize(ctx context.Context, req capability.SpeechRequest) ([]byte, error) {
	params := oai.AudioSpeechNewParams{
		Input:          req.Input,
		Model:          oai.SpeechModel(req.Model),
		Voice:          oai.AudioSpeechNewParamsVoice(req.Voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(req.Format),
	}
	if req.Speed > 0 {
		params.Speed = param.NewOpt(req.Speed)
	}

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, wrap("speech", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read speech body: %w", err)
	}
	return data, nil
}

// Ping resolves one model to verify the credential and endpoint.
func (p *Provider) Ping(ctx context.Context, model string) error {
	if _, err := p.client.Models.Get(ctx, model); err != nil {
		return wrap("models", err)
	}
	return nil
}

// wrap converts SDK API errors into capability.ProviderError so callers can
// classify by HTTP status without importing the SDK.
func wrap(op string, err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return &capability.ProviderError{
			StatusCode: apiErr.StatusCode,
			Err:        fmt.Errorf("openai: %s: %w", op, err),
		}
	}
	return &capability.ProviderError{Err: fmt.Errorf("openai: %s: %w", op, err)}
}
