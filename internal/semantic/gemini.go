package semantic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/genai"
)

// Static errors for Gemini client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("gemini: GEMINI_API_KEY is required")
	// ErrEmptyAudio is returned when the request carries no audio.
	ErrEmptyAudio = errors.New("gemini: audio payload is empty")
	// ErrEmptyResponse is returned when the model answers without text.
	ErrEmptyResponse = errors.New("gemini: empty response")
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiClient implements Analyzer on top of the Gemini API.
type GeminiClient struct {
	apiKey          string
	model           string
	baseURL         string
	language        string
	maxOutputTokens int32
	httpClient      *http.Client
	maxRetries      int
	baseBackoff     time.Duration

	client *genai.Client
}

// ClientOption is a function that configures a GeminiClient.
type ClientOption func(*GeminiClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *GeminiClient) {
		c.apiKey = key
	}
}

// WithModel sets the model name.
func WithModel(model string) ClientOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for the Gemini API.
func WithBaseURL(url string) ClientOption {
	return func(c *GeminiClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// WithSummaryLanguage sets the language requested for the summary.
func WithSummaryLanguage(lang string) ClientOption {
	return func(c *GeminiClient) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithMaxOutputTokens bounds the response size. Non-positive values are ignored.
func WithMaxOutputTokens(n int32) ClientOption {
	return func(c *GeminiClient) {
		if n > 0 {
			c.maxOutputTokens = n
		}
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *GeminiClient) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *GeminiClient) {
		c.baseBackoff = d
	}
}

// NewGeminiClient creates a new Gemini client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context, opts ...ClientOption) (*GeminiClient, error) {
	c := &GeminiClient{
		model:           DefaultModel,
		language:        DefaultSummaryLanguage,
		maxOutputTokens: 8192,
		httpClient:      &http.Client{Timeout: 5 * time.Minute},
		maxRetries:      2,
		baseBackoff:     1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.client = client

	return c, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Analyze sends the recording inline with the analysis instruction and
// returns the raw JSON text produced by the model.
func (c *GeminiClient) Analyze(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", ErrEmptyAudio
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "audio/mp3"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Audio, mimeType),
			genai.NewPartFromText(instruction(c.language)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		MaxOutputTokens:  c.maxOutputTokens,
	}

	var text string
	err := c.withRetry(ctx, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			return classify(err)
		}
		text = resp.Text()
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// withRetry runs call with exponential backoff on retryable errors.
func (c *GeminiClient) withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("gemini: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := call()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("gemini: max retries exceeded: %w", lastErr)
}

// classify wraps rate limiting and server errors as retryable.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return &retryableError{err: fmt.Errorf("gemini: status %d: %w", apiErr.Code, err)}
		}
		return fmt.Errorf("gemini: status %d: %w", apiErr.Code, err)
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
