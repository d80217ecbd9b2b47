// Package remote talks to the Gemini generateContent endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/easytalk/internal/fallback"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/sanitize"
	"github.com/verte-zerg/easytalk/internal/style"
)

const (
	// DefaultBaseURL is the model inference endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/" + model.RemoteModelID + ":generateContent"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 1.0

	keyPrefix    = "AIza"
	keyMinLength = 30

	undefinedToken       = "undefined"
	undefinedPlaceholder = "필요한 것"
	pingPrompt           = "테스트"
)

// Config holds client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client rewrites text through the remote model.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

var rewriteParams = generationConfig{
	Temperature:     0.1,
	TopK:            10,
	TopP:            0.7,
	MaxOutputTokens: 200,
	CandidateCount:  1,
}

var pingParams = generationConfig{
	Temperature:     0.1,
	MaxOutputTokens: 50,
	CandidateCount:  1,
}

// New creates a client. A nil logger discards output.
func New(cfg Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// SetAPIKey replaces the key used for subsequent calls.
func (c *Client) SetAPIKey(key string) {
	c.apiKey = strings.TrimSpace(key)
}

// HasAPIKey reports whether any key is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// ValidateAPIKey checks the key format without contacting the endpoint.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return &ConfigError{Reason: "API key is empty"}
	case len(key) < keyMinLength:
		return &ConfigError{Reason: "API key is too short"}
	case !strings.HasPrefix(key, keyPrefix):
		return &ConfigError{Reason: fmt.Sprintf("Gemini API keys start with %q", keyPrefix)}
	}
	return nil
}

// CleanInput replaces literal "undefined" tokens left by upstream bugs.
func CleanInput(text string) string {
	return strings.ReplaceAll(text, undefinedToken, undefinedPlaceholder)
}

// Rewrite asks the model for a simplified sentence. When the reply carries
// no usable text it returns the rule-based rewrite of the cleaned input with
// Source set to fallback. Transport and HTTP failures are returned as
// *APIError, key problems as *ConfigError.
func (c *Client) Rewrite(ctx context.Context, req model.ConversionRequest) (model.ConversionResult, error) {
	if err := ValidateAPIKey(c.apiKey); err != nil {
		return model.ConversionResult{}, err
	}
	cleanText := CleanInput(req.OriginalText)
	prompt, err := style.BuildPrompt(req.Style, cleanText)
	if err != nil {
		return model.ConversionResult{}, &ConfigError{Reason: err.Error()}
	}

	log := c.logger.WithFields(logrus.Fields{"style": req.Style, "chars": len([]rune(cleanText))})
	log.Debug("calling remote model")

	body, err := c.generate(ctx, c.apiKey, prompt, rewriteParams)
	if err != nil {
		return model.ConversionResult{}, err
	}

	reply := firstCandidateText(body)
	if reply == "" {
		log.WithError(ErrUnusableReply).Info("using fallback rewriter")
		return fallback.Rewrite(cleanText, req.Style), nil
	}

	sentence, err := sanitize.Sanitize(reply)
	if err != nil {
		log.WithError(err).WithField("reply", reply).Info("using fallback rewriter")
		return fallback.Rewrite(cleanText, req.Style), nil
	}

	return model.ConversionResult{
		ConvertedText: sentence,
		Replacements:  []model.Replacement{},
		Source:        model.SourceRemote,
		Style:         req.Style,
	}, nil
}

// Ping sends a tiny test prompt with key and succeeds when a candidate
// comes back.
func (c *Client) Ping(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	body, err := c.generate(ctx, key, pingPrompt, pingParams)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(body) {
		return &APIError{Status: http.StatusOK, Message: "failed to parse API response"}
	}
	if !gjson.GetBytes(body, "candidates.0").Exists() {
		return &APIError{Status: http.StatusOK, Message: "API response has no candidates"}
	}
	return nil
}

func (c *Client) generate(ctx context.Context, key, prompt string, params generationConfig) ([]byte, error) {
	payload := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: params,
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("bad endpoint URL: %v", err)}
	}
	q := endpoint.Query()
	q.Set("key", key)
	endpoint.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Message: redactKey(err.Error(), key), Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Debug("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: "failed to read response: " + err.Error(), Err: err}
	}
	c.logger.WithField("status", resp.StatusCode).Debug("remote model responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// firstCandidateText returns the first non-empty text part of the first
// candidate, or "".
func firstCandidateText(body []byte) string {
	var text string
	gjson.GetBytes(body, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		if t := p.Get("text").String(); t != "" {
			text = t
			return false
		}
		return true
	})
	return text
}

func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

// url.Error embeds the full request URL, key included.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "REDACTED")
}
